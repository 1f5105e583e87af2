package store

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	swhttp "github.com/sizewatch/sizewatch/http"
)

// Actions results-service endpoints (twirp, JSON encoding).
const (
	createArtifactPath   = "twirp/github.actions.results.api.v1.ArtifactService/CreateArtifact"
	finalizeArtifactPath = "twirp/github.actions.results.api.v1.ArtifactService/FinalizeArtifact"

	// artifactAPIVersion is the artifact storage protocol version.
	artifactAPIVersion = 4
)

// resultsClient uploads artifacts through the Actions results service:
// CreateArtifact for a signed blob URL, a blob PUT, then FinalizeArtifact.
type resultsClient struct {
	http    *swhttp.Client
	baseURL string

	// Backend ids identifying the run and job, extracted from the
	// runtime token's scope claim.
	runBackendID string
	jobBackendID string
}

func newResultsClient(resultsURL, runtimeToken string) (*resultsClient, error) {
	runID, jobID, err := backendIDsFromToken(runtimeToken)
	if err != nil {
		return nil, err
	}

	httpClient := swhttp.NewClient(swhttp.ClientConfig{
		ServiceName: "actions-results",
		BeforeRequest: func(req *http.Request) {
			// Signed blob URLs carry their own auth; only service calls
			// get the bearer token.
			if strings.Contains(req.URL.Path, "twirp/") {
				req.Header.Set("Authorization", "Bearer "+runtimeToken)
			}
		},
	})

	return &resultsClient{
		http:         httpClient,
		baseURL:      strings.TrimSuffix(resultsURL, "/") + "/",
		runBackendID: runID,
		jobBackendID: jobID,
	}, nil
}

// backendIDsFromToken extracts the run and job backend ids from the
// runtime token's "scp" claim, which carries a scope of the form
// "Actions.Results:<runBackendID>:<jobBackendID>". The token signature is
// not verified here; it is only decoded, and the service rejects forgeries.
func backendIDsFromToken(runtimeToken string) (runID, jobID string, err error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(runtimeToken, claims); err != nil {
		return "", "", fmt.Errorf("decode runtime token: %w", err)
	}

	scp, _ := claims["scp"].(string)
	for _, scope := range strings.Fields(scp) {
		parts := strings.Split(scope, ":")
		if len(parts) == 3 && parts[0] == "Actions.Results" {
			return parts[1], parts[2], nil
		}
	}
	return "", "", fmt.Errorf("runtime token has no Actions.Results scope")
}

type createArtifactRequest struct {
	WorkflowRunBackendID    string `json:"workflow_run_backend_id"`
	WorkflowJobRunBackendID string `json:"workflow_job_run_backend_id"`
	Name                    string `json:"name"`
	Version                 int    `json:"version"`
	ExpiresAt               string `json:"expires_at,omitempty"`
}

type createArtifactResponse struct {
	OK              bool   `json:"ok"`
	SignedUploadURL string `json:"signed_upload_url"`
}

type finalizeArtifactRequest struct {
	WorkflowRunBackendID    string     `json:"workflow_run_backend_id"`
	WorkflowJobRunBackendID string     `json:"workflow_job_run_backend_id"`
	Name                    string     `json:"name"`
	Size                    string     `json:"size"`
	Hash                    *hashValue `json:"hash,omitempty"`
}

type hashValue struct {
	Value string `json:"value"`
}

type finalizeArtifactResponse struct {
	OK         bool   `json:"ok"`
	ArtifactID string `json:"artifact_id"`
}

func (rc *resultsClient) upload(ctx context.Context, name string, files map[string][]byte, retentionDays int) error {
	content, err := zipFiles(files)
	if err != nil {
		return err
	}

	createReq := createArtifactRequest{
		WorkflowRunBackendID:    rc.runBackendID,
		WorkflowJobRunBackendID: rc.jobBackendID,
		Name:                    name,
		Version:                 artifactAPIVersion,
	}
	if retentionDays > 0 {
		createReq.ExpiresAt = time.Now().UTC().AddDate(0, 0, retentionDays).Format(time.RFC3339)
	}

	var created createArtifactResponse
	if err := rc.http.PostJSON(ctx, rc.baseURL+createArtifactPath, createReq, &created); err != nil {
		return fmt.Errorf("create artifact %q: %w", name, err)
	}
	if !created.OK || created.SignedUploadURL == "" {
		return fmt.Errorf("create artifact %q: service did not return an upload URL", name)
	}

	blobHeaders := map[string]string{
		"x-ms-blob-type":         "BlockBlob",
		"x-ms-blob-content-type": "application/zip",
	}
	if err := rc.http.PutBlob(ctx, created.SignedUploadURL, content, blobHeaders); err != nil {
		return fmt.Errorf("upload artifact %q content: %w", name, err)
	}

	digest := sha256.Sum256(content)
	finalizeReq := finalizeArtifactRequest{
		WorkflowRunBackendID:    rc.runBackendID,
		WorkflowJobRunBackendID: rc.jobBackendID,
		Name:                    name,
		Size:                    strconv.Itoa(len(content)),
		Hash:                    &hashValue{Value: "sha256:" + hex.EncodeToString(digest[:])},
	}

	var finalized finalizeArtifactResponse
	if err := rc.http.PostJSON(ctx, rc.baseURL+finalizeArtifactPath, finalizeReq, &finalized); err != nil {
		return fmt.Errorf("finalize artifact %q: %w", name, err)
	}
	if !finalized.OK {
		return fmt.Errorf("finalize artifact %q: service reported failure", name)
	}
	return nil
}

// zipFiles builds a deterministic zip archive: entries sorted by name,
// fixed timestamps, so identical records produce identical content.
func zipFiles(files map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("zip entry %q: %w", name, err)
		}
		if _, err := w.Write(files[name]); err != nil {
			return nil, fmt.Errorf("zip entry %q: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish zip: %w", err)
	}
	return buf.Bytes(), nil
}
