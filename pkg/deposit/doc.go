// Package deposit sizes the storage deposit attached to SocialDB writes.
//
// The contract charges a fixed price per stored byte. A write is quoted from
// the byte delta between the value currently stored at the key and the value
// being written; right before signing the quote is reconciled against the
// account's current storage balance and the current price, and only the
// shortfall (or the protocol floor) is attached. All amounts are integers in
// yoctoNEAR.
package deposit
