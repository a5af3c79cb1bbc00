// Package bos_sdk wires the SocialDB client, the deposit engine and the
// transaction builder into the workflows of the bos CLI: reading and writing
// single keys, downloading an account's components to disk and deploying
// local components back.
//
// Configuration comes from BOS_* environment variables (optionally loaded
// from .env files) and a network table that maps a network name to its RPC
// endpoint and SocialDB contract. BOS_RUNTIME_MODE selects the JSON-RPC
// transport or an in-memory contract that also executes submitted calls.
package bos_sdk
