// Package google handles OAuth2 credentials and token storage shared by the
// Gmail and Drive clients.
//
// The OAuth client (client_id/client_secret) is read from credentials.json
// in the user config directory, in the format Google Cloud Console exports
// for installed applications. Exchanged tokens are cached per account in the
// user cache directory.
package google
