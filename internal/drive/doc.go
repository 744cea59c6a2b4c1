// Package drive wraps the Google Drive API with the narrow storage surface
// the pipeline consumes: folder lookup and creation, and file upload.
package drive
