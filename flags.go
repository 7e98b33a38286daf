package main

import (
	"flag"

	"k8s.io/klog/v2"
)

var (
	owner             string
	repo              string
	branch            string
	baseBranch        = "master"
	authorName        = "dbsync"
	authorEmail       = "dbsync@users.noreply.github.com"
	s3CredentialsFile string
	tokenPath         string

	bucket     string
	object     string
	dbPath     string
	listenAddr string
)

func init() {
	flag.StringVar(&s3CredentialsFile, "s3-credentials-file", "", "File where s3 credentials are stored, as JSON with region, endpoint, insecure, s3_force_path_style, access_key and secret_key.")
	flag.StringVar(&bucket, "bucket", "", "Bucket holding the database.")
	flag.StringVar(&object, "object", "", "Object name of the database. For push it defaults to the base name of --db-path.")
	flag.StringVar(&dbPath, "db-path", "", "Local path of the database file.")
	flag.StringVar(&listenAddr, "listen", ":8090", "Address the serve command listens on.")
	flag.StringVar(&owner, "owner", "", "GH Org to record pushes in. Recording is off when empty.")
	flag.StringVar(&repo, "repo", "", "GH Repo to record pushes in. Recording is off when empty.")
	flag.StringVar(&branch, "branch", "dbsync", "GH branch that push records are committed to.")
	flag.StringVar(&tokenPath, "github-token-path", "", "Path to the file containing the GitHub OAuth secret.")
	klog.InitFlags(nil)
}
