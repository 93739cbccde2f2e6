// Package cli provides the gophauth command-line client.
//
// Commands:
//   - register  create an account (password read without echo)
//   - login     print a session token
//   - whoami    show the identity bound to --token
//   - users     list users (http transport only)
package cli
