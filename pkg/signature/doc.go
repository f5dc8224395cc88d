// Package signature implements the sec_key request authentication protocol.
//
// A token is computed from the canonical string "{partner_id}:{timestamp}":
//
//	hashed    = hex(SHA-256(canonical))
//	encrypted = base64(RSA-PKCS1v15(service public key, hashed))
//	sec_key   = encrypted + "|" + hashed
//
// The partner id is hashed in its numeric canonical form, so "001" and "1"
// produce the same token. The hash half is deterministic for a fixed
// (partner id, timestamp) pair; the encrypted half is randomized.
//
// Responses from the service carry a signature over the echoed timestamp;
// Confirm recomputes the hash half and compares in constant time.
package signature
