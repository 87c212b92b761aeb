// Package gdrive implements drive.FileAPI on the Google Drive v3 API.
package gdrive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/trezcool/ieptracker/core/store"
	"github.com/trezcool/ieptracker/storage/drive"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"
	jsonMimeType   = "application/json"
	fileFields     = "id, name, mimeType, modifiedTime"
	listFields     = "nextPageToken, files(" + fileFields + ")"
)

var (
	queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

	quotaReasons = map[string]bool{
		"storageQuotaExceeded":  true,
		"quotaExceeded":         true,
		"dailyLimitExceeded":    true,
		"rateLimitExceeded":     true,
		"userRateLimitExceeded": true,
	}
)

// Client calls the Drive API on behalf of the owner of a bearer token.
type Client struct {
	svc *drivev3.Service
}

var _ drive.FileAPI = (*Client)(nil)

// New returns a Client authorised by token. The token is neither refreshed nor validated here.
func New(ctx context.Context, token string, opts ...option.ClientOption) (*Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	svc, err := drivev3.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating drive service")
	}
	return &Client{svc: svc}, nil
}

// Factory returns a store.RemoteFactory mirroring to Google Drive.
// A non-empty endpoint replaces the public API base path.
func Factory(mirrorOpts drive.Options, endpoint string) store.RemoteFactory {
	return func(ctx context.Context, credential string) (store.RemoteStore, error) {
		var opts []option.ClientOption
		if endpoint != "" {
			opts = append(opts, option.WithEndpoint(endpoint))
		}
		client, err := New(ctx, credential, opts...)
		if err != nil {
			return nil, err
		}
		return drive.NewMirror(client, mirrorOpts), nil
	}
}

func findQuery(name, parentID string, foldersOnly bool) string {
	q := []string{fmt.Sprintf("name = '%s'", queryEscaper.Replace(name)), "trashed = false"}
	if parentID != "" {
		q = append(q, fmt.Sprintf("'%s' in parents", queryEscaper.Replace(parentID)))
	}
	if foldersOnly {
		q = append(q, fmt.Sprintf("mimeType = '%s'", folderMimeType))
	}
	return strings.Join(q, " and ")
}

func (c *Client) list(ctx context.Context, op, q string) ([]drive.File, error) {
	files := make([]drive.File, 0)
	err := c.svc.Files.List().
		Q(q).
		Fields(listFields).
		Pages(ctx, func(page *drivev3.FileList) error {
			for _, f := range page.Files {
				files = append(files, toFile(f))
			}
			return nil
		})
	if err != nil {
		return nil, classify(op, err)
	}
	return files, nil
}

func (c *Client) Find(ctx context.Context, name, parentID string, foldersOnly bool) ([]drive.File, error) {
	return c.list(ctx, "find "+name, findQuery(name, parentID, foldersOnly))
}

func (c *Client) List(ctx context.Context, parentID string) ([]drive.File, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false", queryEscaper.Replace(parentID))
	return c.list(ctx, "list files", q)
}

func (c *Client) CreateFolder(ctx context.Context, name string) (drive.File, error) {
	f, err := c.svc.Files.Create(&drivev3.File{Name: name, MimeType: folderMimeType}).
		Fields(fileFields).
		Context(ctx).
		Do()
	if err != nil {
		return drive.File{}, classify("create folder", err)
	}
	return toFile(f), nil
}

func (c *Client) CreateFile(ctx context.Context, name, parentID string, content []byte) (drive.File, error) {
	meta := &drivev3.File{Name: name, Parents: []string{parentID}, MimeType: jsonMimeType}
	f, err := c.svc.Files.Create(meta).
		Media(bytes.NewReader(content), googleapi.ContentType(jsonMimeType)).
		Fields(fileFields).
		Context(ctx).
		Do()
	if err != nil {
		return drive.File{}, classify("create "+name, err)
	}
	return toFile(f), nil
}

func (c *Client) UpdateFile(ctx context.Context, id string, content []byte) (drive.File, error) {
	f, err := c.svc.Files.Update(id, &drivev3.File{}).
		Media(bytes.NewReader(content), googleapi.ContentType(jsonMimeType)).
		Fields(fileFields).
		Context(ctx).
		Do()
	if err != nil {
		return drive.File{}, classify("update file", err)
	}
	return toFile(f), nil
}

func (c *Client) Download(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, classify("download file", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify("download file", err)
	}
	return data, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.svc.Files.Delete(id).Context(ctx).Do(); err != nil {
		return classify("delete file", err)
	}
	return nil
}

func toFile(f *drivev3.File) drive.File {
	file := drive.File{ID: f.Id, Name: f.Name, Folder: f.MimeType == folderMimeType}
	if f.ModifiedTime != "" {
		if ts, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			file.ModifiedTime = ts.UTC()
		}
	}
	return file
}

// classify turns an API failure into a *store.RemoteError of the matching kind.
func classify(op string, err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		kind := store.RemoteHTTP
		switch {
		case gErr.Code == http.StatusUnauthorized:
			kind = store.RemoteAuth
		case gErr.Code == http.StatusTooManyRequests:
			kind = store.RemoteQuota
		case gErr.Code == http.StatusForbidden && hasQuotaReason(gErr):
			kind = store.RemoteQuota
		}
		return store.NewRemoteError(kind, op, gErr.Code, err)
	}

	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) {
		return store.NewRemoteError(store.RemoteAuth, op, 0, err)
	}
	return store.NewRemoteError(store.RemoteTransport, op, 0, err)
}

func hasQuotaReason(gErr *googleapi.Error) bool {
	for _, item := range gErr.Errors {
		if quotaReasons[item.Reason] {
			return true
		}
	}
	return false
}
