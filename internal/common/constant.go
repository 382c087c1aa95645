package common

// DefaultContentType is recorded when the content type of an upload
// cannot be determined.
const DefaultContentType = "application/octet-stream"

// UsersRoot is the remote directory holding every user namespace.
const UsersRoot = "/users"
