package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/google/go-github/v32/github"
	"golang.org/x/oauth2"
	"k8s.io/klog/v2"
)

// gitService is the part of github.GitService used to commit push records.
type gitService interface {
	GetRef(ctx context.Context, owner, repo, ref string) (*github.Reference, *github.Response, error)
	CreateRef(ctx context.Context, owner, repo string, ref *github.Reference) (*github.Reference, *github.Response, error)
	CreateTree(ctx context.Context, owner, repo, baseTree string, entries []*github.TreeEntry) (*github.Tree, *github.Response, error)
	CreateCommit(ctx context.Context, owner, repo string, commit *github.Commit) (*github.Commit, *github.Response, error)
	UpdateRef(ctx context.Context, owner, repo string, ref *github.Reference, force bool) (*github.Reference, *github.Response, error)
}

type commitGetter interface {
	GetCommit(ctx context.Context, owner, repo, sha string) (*github.RepositoryCommit, *github.Response, error)
}

var (
	gitClient  gitService
	repoClient commitGetter
	ctx        = context.Background()
	now        = time.Now
)

type pushRecord struct {
	Bucket   string    `json:"bucket"`
	Object   string    `json:"object"`
	Source   string    `json:"source"`
	Size     int64     `json:"size"`
	PushedAt time.Time `json:"pushed_at"`
}

func recordingEnabled() bool {
	return gitClient != nil && repoClient != nil
}

func getRef(baseBranch, commitBranch string) (ref *github.Reference, err error) {
	if ref, _, err = gitClient.GetRef(ctx, owner, repo, "refs/heads/"+commitBranch); err == nil {
		return ref, nil
	}

	var baseRef *github.Reference
	if baseRef, _, err = gitClient.GetRef(ctx, owner, repo, "refs/heads/"+baseBranch); err != nil {
		return nil, err
	}
	newRef := &github.Reference{Ref: github.String("refs/heads/" + commitBranch), Object: &github.GitObject{SHA: baseRef.Object.SHA}}
	ref, _, err = gitClient.CreateRef(ctx, owner, repo, newRef)
	return ref, err
}

func getTree(ref *github.Reference, file string, content []byte) (tree *github.Tree, err error) {
	entries := []*github.TreeEntry{
		{Path: github.String(file), Type: github.String("blob"), Content: github.String(string(content)), Mode: github.String("100644")},
	}
	tree, _, err = gitClient.CreateTree(ctx, owner, repo, *ref.Object.SHA, entries)
	return tree, err
}

func pushCommit(ref *github.Reference, tree *github.Tree, commitMessage *string) (err error) {
	parent, _, err := repoClient.GetCommit(ctx, owner, repo, *ref.Object.SHA)
	if err != nil {
		return err
	}
	// This is not always populated, but is needed.
	parent.Commit.SHA = parent.SHA

	date := now()
	author := &github.CommitAuthor{Date: &date, Name: &authorName, Email: &authorEmail}
	commit := &github.Commit{Author: author, Message: commitMessage, Tree: tree, Parents: []*github.Commit{parent.Commit}}
	newCommit, _, err := gitClient.CreateCommit(ctx, owner, repo, commit)
	if err != nil {
		return err
	}

	ref.Object.SHA = newCommit.SHA
	_, _, err = gitClient.UpdateRef(ctx, owner, repo, ref, false)
	return err
}

// recordPush commits rec as <bucket>/<object>.json to the record branch.
func recordPush(rec pushRecord) error {
	if !recordingEnabled() {
		return nil
	}
	content, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal push record: %w", err)
	}
	file := path.Join(rec.Bucket, rec.Object+".json")

	ref, err := getRef(baseBranch, branch)
	if err != nil {
		return fmt.Errorf("failed to get branch %s: %w", branch, err)
	}
	tree, err := getTree(ref, file, content)
	if err != nil {
		return fmt.Errorf("failed to create tree for %s: %w", file, err)
	}
	commitMessage := fmt.Sprintf("Record push of s3://%s/%s", rec.Bucket, rec.Object)
	if err := pushCommit(ref, tree, &commitMessage); err != nil {
		return fmt.Errorf("unable to create the commit: %w", err)
	}
	klog.Infof("recorded push in %s/%s@%s:%s", owner, repo, branch, file)
	return nil
}

func gitInit() error {
	if owner == "" || repo == "" {
		klog.Info("--owner or --repo not set, push recording is disabled")
		return nil
	}
	var token string
	// override the token set in the GITHUB_AUTH_TOKEN env if any
	if tkn := os.Getenv("GITHUB_AUTH_TOKEN"); tkn != "" {
		token = tkn
	} else {
		if tokenPath == "" {
			return fmt.Errorf("github token is missing, either --github-token-path or GITHUB_AUTH_TOKEN env is missing")
		}
		secret, err := os.ReadFile(tokenPath)
		if err != nil {
			return err
		}
		token = string(bytes.TrimSpace(secret))
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)
	gitClient = client.Git
	repoClient = client.Repositories
	return nil
}
