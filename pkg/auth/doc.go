// Package auth implements multi-scheme HTTP authentication for the MCP
// server.
//
// This package contains the decision core:
//
//   - credential classification of the Authorization header (Classify)
//   - one validator per scheme (permanent tokens, Basic, encrypted bearer
//     tokens, NTLM, custom)
//   - the Dispatcher, which maps a request to exactly one validator based
//     on classification (detection-based dispatch, not try-until-success)
//   - the public-resource exemption table, consulted before any validator
//   - the AdminSelector, a separate single-scheme policy for the admin
//     surface
//   - startup detection of which schemes are configured (Detect)
//
// Every validator returns a Verdict rather than an error for the
// "credential well-formed but wrong" case; only unrecoverable conditions
// surface as errors, and the HTTP middleware converts those at its
// boundary.
//
// NTLM negotiation, sessions and directory access live in the ntlm
// sub-package and are consumed here through the NTLMAuthenticator
// interface.
package auth
