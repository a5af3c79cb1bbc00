// Package socialdb reads the SocialDB contract: documents through its "get"
// view method, storage balances through "storage_balance_of" and the network
// storage price from the protocol config.
//
// A Client talks to a Backend. The default backend speaks NEAR JSON-RPC over
// HTTP; pkg/socialdb/mock provides an in-memory contract for tests and
// offline development. NewFromEnv picks one based on BOS_RUNTIME_MODE.
package socialdb
