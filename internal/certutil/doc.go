// Package certutil generates the self-signed DER certificate and
// private key a lane listener presents during its TLS handshake.
//
// Starlane does not perform certificate issuance or renewal as an
// external CA service — that is explicitly out of scope — but every
// star still needs a cert to terminate TLS with. This package writes a
// DER-encoded X.509 certificate and a DER-encoded PKCS#8 private key to
// a directory, matching the lane wire format's certificate boundary.
package certutil
