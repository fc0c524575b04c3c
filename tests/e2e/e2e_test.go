//
// dropzone - End-to-End Test
//
// Purpose:
//   Validates the upload → list → download → sweep flow against a real
//   MinIO instance using dockertest. It starts MinIO with an ephemeral
//   port, creates the bucket, wires the server with the MinIO backend,
//   uploads content over HTTP, verifies the listing and the payload,
//   then forces a sweep and verifies the object is gone.
//
// Usage:
//   Requires Docker available to the test runner. Run:
//     go test -v ./tests/e2e
//   Optional env:
//     DZ_MINIO_TEST_TAG  override MinIO image tag for compatibility.
//
// Notes:
//   - Network ports are dynamically mapped by dockertest; the test
//     queries the assigned host port and builds the client config
//     from it.
//   - The suite skips itself when Docker is not reachable, so the
//     unit-test run stays green on machines without Docker.

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"dropzone/internal/blobstore"
	"dropzone/internal/server"
	"dropzone/internal/session"
	"dropzone/internal/sweep"
	"dropzone/internal/upload"
)

func TestUploadListDownloadSweepFlow(t *testing.T) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}

	// MinIO (tag can be overridden by DZ_MINIO_TEST_TAG)
	tag := os.Getenv("DZ_MINIO_TEST_TAG")
	if tag == "" {
		tag = "RELEASE.2024-01-31T20-20-33Z"
	}
	minioResource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "minio/minio",
		Tag:        tag,
		Cmd:        []string{"server", "/data"},
		Env: []string{
			"MINIO_ROOT_USER=minio",
			"MINIO_ROOT_PASSWORD=minio123",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
	})
	if err != nil {
		t.Fatalf("could not start minio: %v", err)
	}
	defer func() { _ = pool.Purge(minioResource) }()
	minioPort := minioResource.GetPort("9000/tcp")

	// Wait for minio to be fully ready
	if err := pool.Retry(func() error {
		resp, err := http.Get("http://localhost:" + minioPort + "/minio/health/live")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != 200 {
			return fmt.Errorf("minio not ready: %d", resp.StatusCode)
		}
		return nil
	}); err != nil {
		t.Fatalf("minio not ready: %v", err)
	}

	// Create the bucket with the minio-go client directly.
	mc, err := minio.New("localhost:"+minioPort, &minio.Options{
		Creds:  credentials.NewStaticV4("minio", "minio123", ""),
		Secure: false,
	})
	if err != nil {
		t.Fatalf("failed to create minio client: %v", err)
	}
	bucket := "dropzone-e2e"
	if err := mc.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{}); err != nil {
		exists, err2 := mc.BucketExists(context.Background(), bucket)
		if err2 != nil || !exists {
			t.Fatalf("could not create or verify bucket: %v / %v", err, err2)
		}
	}

	blobs, err := blobstore.NewMinio(context.Background(), blobstore.MinioConfig{
		Endpoint:  "localhost:" + minioPort,
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    bucket,
	})
	if err != nil {
		t.Fatalf("minio backend init: %v", err)
	}

	ttl := 300 * time.Second
	registry := session.NewRegistry()
	sweeper := sweep.New(registry, blobs, ttl, 0)
	srv := server.New(server.Config{
		Addr:        ":0",
		Registry:    registry,
		Manager:     session.Manager{},
		Coordinator: upload.NewCoordinator(registry, blobs, 0),
		Blobs:       blobs,
		Sweeper:     sweeper,
		TTL:         ttl,
	})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	client := &http.Client{Timeout: 30 * time.Second}

	const sid = "feedfacecafebeef"
	payload := []byte("end to end payload")

	var itemID string
	t.Run("Upload", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "e2e.txt")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		if _, err := fw.Write(payload); err != nil {
			t.Fatalf("write payload: %v", err)
		}
		_ = mw.Close()

		resp, err := client.Post(ts.URL+"/s/"+sid+"/files", mw.FormDataContentType(), &buf)
		if err != nil {
			t.Fatalf("upload failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
		}

		var result struct {
			Succeeded []session.Item `json:"succeeded"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode upload response: %v", err)
		}
		if len(result.Succeeded) != 1 {
			t.Fatalf("expected 1 stored item, got %d", len(result.Succeeded))
		}
		itemID = result.Succeeded[0].ID
	})

	t.Run("List", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/s/"+sid, nil)
		req.Header.Set("Accept", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		var listing struct {
			Items []session.Item `json:"items"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
			t.Fatalf("decode listing: %v", err)
		}
		if len(listing.Items) != 1 || listing.Items[0].ID != itemID {
			t.Fatalf("unexpected listing: %+v", listing.Items)
		}
	})

	t.Run("Download", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/s/" + sid + "/f/" + itemID)
		if err != nil {
			t.Fatalf("download failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		got, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("payload mismatch: got %q", got)
		}
	})

	t.Run("Sweep", func(t *testing.T) {
		removed := sweeper.SweepOnce(context.Background(), time.Now().UTC().Add(ttl+time.Second))
		if len(removed) != 1 {
			t.Fatalf("expected 1 removed item, got %d", len(removed))
		}

		// The registry no longer knows the session.
		resp, err := client.Get(ts.URL + "/s/" + sid + "/f/" + itemID)
		if err != nil {
			t.Fatalf("get after sweep: %v", err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404 after sweep, got %d", resp.StatusCode)
		}

		// And the object is physically gone from the bucket.
		_, err = mc.StatObject(context.Background(), bucket, removed[0].Locator, minio.StatObjectOptions{})
		if err == nil {
			t.Fatalf("object %s still exists after sweep", removed[0].Locator)
		}
	})
}
