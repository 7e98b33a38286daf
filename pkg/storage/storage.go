package storage

// Storage moves whole objects between a bucket and the local filesystem.
// Existing files and objects are overwritten.
type Storage interface {
	Download(bucket, object, localPath string) error
	Upload(localPath, bucket, object string) error
}
