// Package document models the nested JSON documents stored by the SocialDB
// contract. A document is a tree of Nodes: branches map segment names to child
// nodes in insertion order, leaves hold an opaque compact JSON value. Key paths
// address a location inside the tree either in dotted form ("profile.name") or
// in the account-scoped store form used by the contract
// ("alice.near/profile/name"), where account ids may themselves contain dots.
//
// Merge never mutates its input: every write copies the branches along the
// written path and shares the untouched siblings.
package document
