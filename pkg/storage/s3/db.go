package s3

// newSession is swapped out in tests.
var newSession = NewSession

// GetDB downloads the database object dbName from bucket to localPath.
// A new client is built from cred for every call.
func GetDB(cred Credentials, bucket, dbName, localPath string) error {
	client, err := newSession(&cred)
	if err != nil {
		return err
	}
	return client.Download(bucket, dbName, localPath)
}

// UploadDB uploads the database at localPath to bucket as dbName.
// A new client is built from cred for every call.
func UploadDB(cred Credentials, localPath, bucket, dbName string) error {
	client, err := newSession(&cred)
	if err != nil {
		return err
	}
	return client.Upload(localPath, bucket, dbName)
}
