// Package archive extracts zip attachments, including ones protected with a
// passphrase (ZipCrypto or AES), into in-memory entry maps.
package archive
