package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"k8s.io/klog/v2"
)

func pull(bucket, object string) error {
	if bucket == "" || object == "" || dbPath == "" {
		return fmt.Errorf("bucket, object and db-path are required to pull")
	}
	return store.Download(bucket, object, dbPath)
}

// push uploads dbPath and returns the object name it was stored under.
func push(bucket, object string) (string, error) {
	if bucket == "" || dbPath == "" {
		return "", fmt.Errorf("bucket and db-path are required to push")
	}
	if object == "" {
		object = filepath.Base(dbPath)
	}
	if err := store.Upload(dbPath, bucket, object); err != nil {
		return object, err
	}
	if !recordingEnabled() {
		return object, nil
	}
	fi, err := os.Stat(dbPath)
	if err != nil {
		return object, fmt.Errorf("failed to stat %s for the push record: %w", dbPath, err)
	}
	return object, recordPush(pushRecord{
		Bucket:   bucket,
		Object:   object,
		Source:   dbPath,
		Size:     fi.Size(),
		PushedAt: now().UTC(),
	})
}

// transferTarget returns the bucket and object for a request, falling back
// to the flag defaults.
func transferTarget(req *http.Request) (string, string) {
	params := req.URL.Query()
	b, o := bucket, object
	if v := params.Get("bucket"); v != "" {
		b = v
	}
	if v := params.Get("object"); v != "" {
		o = v
	}
	return b, o
}

//How to test:
// Pull:
//    curl -v -X POST http://127.0.0.1:8090/db/pull\?bucket\=my-bucket\&object\=app.db
// Push:
//    curl -v -X POST http://127.0.0.1:8090/db/push
func dbPull(w http.ResponseWriter, req *http.Request) {
	b, o := transferTarget(req)
	if err := pull(b, o); err != nil {
		klog.Errorf("pull of s3://%s/%s failed: %v", b, o, err)
		http.Error(w, fmt.Sprintf("failed to pull the db: %v", err), http.StatusInternalServerError)
		return
	}
	fmt.Fprintf(w, "pulled s3://%s/%s to %s\n", b, o, dbPath)
}

func dbPush(w http.ResponseWriter, req *http.Request) {
	b, o := transferTarget(req)
	o, err := push(b, o)
	if err != nil {
		klog.Errorf("push to s3://%s/%s failed: %v", b, o, err)
		http.Error(w, fmt.Sprintf("failed to push the db: %v", err), http.StatusInternalServerError)
		return
	}
	fmt.Fprintf(w, "pushed %s to s3://%s/%s\n", dbPath, b, o)
}

func health(w http.ResponseWriter, req *http.Request) {
	fmt.Fprint(w, "ok")
}

func newRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/db/pull", dbPull).Methods(http.MethodPost)
	r.HandleFunc("/db/push", dbPush).Methods(http.MethodPost)
	r.HandleFunc("/health", health).Methods(http.MethodGet)
	return r
}

func serve() error {
	r := newRouter()
	err := r.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, _ := route.GetMethods()
		klog.Infof("route %s %s", strings.Join(methods, ","), pathTemplate)
		return nil
	})
	if err != nil {
		klog.Errorf("failed to walk routes: %v", err)
	}

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	klog.Infof("listening on %s", listenAddr)
	return srv.ListenAndServe()
}

func main() {
	flag.Parse()
	defer klog.Flush()
	klog.Info("Start: dbsync")

	if err := backingStoreInit(); err != nil {
		klog.Fatalf("failed to backingStoreInit: %v", err)
	}
	if err := gitInit(); err != nil {
		klog.Fatalf("failed to gitInit: %v", err)
	}

	command := "serve"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}
	var err error
	switch command {
	case "pull":
		err = pull(bucket, object)
	case "push":
		_, err = push(bucket, object)
	case "serve":
		err = serve()
	default:
		err = fmt.Errorf("unknown command %q, expected pull, push or serve", command)
	}
	if err != nil {
		klog.Fatalf("%s: %v", command, err)
	}
	klog.Infof("Exit: %s", command)
}
