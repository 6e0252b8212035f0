// Package main (cmd/custodian) implements the custodian client for the share
// recovery service's collection sessions.
//
// Custodians each hold one share of a split secret. This tool covers their
// side of a recovery: key management, signed share submission, and handling
// of the fresh shares issued after a successful recovery.
//
// Commands:
//
//	generate-key      - Generate a custodian ECDSA key pair and print its ID
//	fingerprint       - Print the custodian ID for a public key file
//	generate-registry - Build the custodians.json registry from public key files
//	create-session    - Open a share collection session on the server
//	submit-share      - Submit this custodian's share to a session
//	session-status    - Fetch session state and, once complete, the report
//	reissue           - Request fresh shares for the custodians that submitted correct ones
//	decrypt-share     - Decrypt this custodian's entry from a saved reissue response
//	combine           - Reconstruct the secret from decrypted share parts
//
// A custodian's identity is the SHA-256 fingerprint of their public key PEM.
// Session requests carry that ID together with an ECDSA signature over the
// request, so the server accepts submissions only from registered custodians
// and records each share under the identity that signed it.
//
// Example workflow:
//
//  1. Each custodian generates a keypair:
//     custodian generate-key --privkey-file=c1-private.pem --pubkey-file=c1-public.pem
//
//  2. The operator builds the registry the server is started with:
//     custodian generate-registry --pubkey-files=c1-public.pem,c2-public.pem,c3-public.pem
//
//  3. Any custodian opens a session expecting all three to submit:
//     custodian create-session --k=2 --expected=3
//
//  4. Each custodian submits their share:
//     custodian submit-share --session=<id> --x=1 --y=47
//
//  5. After detection completes, rotate the shares and hand out the response:
//     custodian reissue --session=<id> > reissue.json
//     custodian decrypt-share --reissue-file=reissue.json
//
// Reissued shares are encrypted to each custodian's public key, so a
// custodian whose share was classified wrong learns nothing about the new
// split; decrypt-share and combine close the loop for the honest ones.
package main
