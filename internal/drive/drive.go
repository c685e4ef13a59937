// Package drive uploads and downloads the ledger document as a single JSON
// file in Google Drive. The file is the shared copy between installations;
// writes overwrite it wholesale and the most recent writer wins.
package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"

	"jangbu/internal/document"
)

var ErrFileNotFound = errors.New("ledger file not found on Drive")

type Client struct {
	svc      *gdrive.Service
	fileName string
	folderID string

	// cached after the first lookup
	fileID string
}

// NewFromEnv creates a Drive client using service account credentials.
// Required: DRIVE_CREDENTIALS_JSON or DRIVE_CREDENTIALS_FILE
// Optional: DRIVE_FILE_NAME (default "raon_church_ledger_data.json"), DRIVE_FOLDER_ID
func NewFromEnv(ctx context.Context) (*Client, error) {
	fileName := strings.TrimSpace(os.Getenv("DRIVE_FILE_NAME"))
	if fileName == "" {
		fileName = "raon_church_ledger_data.json"
	}
	folderID := strings.TrimSpace(os.Getenv("DRIVE_FOLDER_ID"))

	svc, err := newDriveService(ctx)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}

	return &Client{
		svc:      svc,
		fileName: fileName,
		folderID: folderID,
	}, nil
}

func newDriveService(ctx context.Context) (*gdrive.Service, error) {
	credentialsJSON := strings.TrimSpace(os.Getenv("DRIVE_CREDENTIALS_JSON"))
	credentialsFile := strings.TrimSpace(os.Getenv("DRIVE_CREDENTIALS_FILE"))

	if credentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentials []byte
	var err error

	switch {
	case credentialsJSON != "":
		credentials = []byte(credentialsJSON)
	case credentialsFile != "":
		credentials, err = os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
	default:
		return nil, errors.New("missing Drive credentials (set DRIVE_CREDENTIALS_JSON, DRIVE_CREDENTIALS_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gdrive.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gdrive.DriveFileScope))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return svc, nil
}

// FindFile locates the ledger file by name and caches its ID.
func (c *Client) FindFile(ctx context.Context) (string, error) {
	if c.fileID != "" {
		return c.fileID, nil
	}

	query := fmt.Sprintf("name = '%s' and trashed = false", c.fileName)
	if c.folderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", c.folderID)
	}

	list, err := c.svc.Files.List().
		Q(query).
		Fields("files(id, name, modifiedTime)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("list drive files: %w", err)
	}

	if len(list.Files) == 0 {
		return "", ErrFileNotFound
	}

	c.fileID = list.Files[0].Id
	slog.InfoContext(ctx, "Located ledger file on Drive",
		"file_id", c.fileID, "name", c.fileName)
	return c.fileID, nil
}

// Load downloads and decodes the ledger file, returning the document and
// its remote modification time.
func (c *Client) Load(ctx context.Context) (document.Document, time.Time, error) {
	fileID, err := c.FindFile(ctx)
	if err != nil {
		return document.Document{}, time.Time{}, err
	}

	meta, err := c.svc.Files.Get(fileID).Fields("modifiedTime").Context(ctx).Do()
	if err != nil {
		return document.Document{}, time.Time{}, fmt.Errorf("get file metadata: %w", err)
	}
	modified, _ := time.Parse(time.RFC3339, meta.ModifiedTime)

	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return document.Document{}, time.Time{}, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return document.Document{}, time.Time{}, fmt.Errorf("read file body: %w", err)
	}

	doc, err := document.Decode(buf.Bytes())
	if err != nil {
		return document.Document{}, time.Time{}, fmt.Errorf("decode ledger file: %w", err)
	}

	slog.InfoContext(ctx, "Loaded ledger document from Drive",
		"file_id", fileID,
		"transactions", len(doc.Transactions),
		"modified", modified)

	return doc, modified, nil
}

// Save uploads the document, overwriting the remote file. The file is
// created on first save.
func (c *Client) Save(ctx context.Context, doc document.Document) error {
	body, err := document.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode ledger document: %w", err)
	}

	fileID, err := c.FindFile(ctx)
	if errors.Is(err, ErrFileNotFound) {
		return c.create(ctx, body)
	}
	if err != nil {
		return err
	}

	_, err = c.svc.Files.Update(fileID, &gdrive.File{}).
		Media(bytes.NewReader(body), googleapi.ContentType("application/json")).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update drive file: %w", err)
	}

	slog.InfoContext(ctx, "Saved ledger document to Drive",
		"file_id", fileID, "bytes", len(body))
	return nil
}

func (c *Client) create(ctx context.Context, body []byte) error {
	meta := &gdrive.File{
		Name:     c.fileName,
		MimeType: "application/json",
	}
	if c.folderID != "" {
		meta.Parents = []string{c.folderID}
	}

	file, err := c.svc.Files.Create(meta).
		Media(bytes.NewReader(body), googleapi.ContentType("application/json")).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("create drive file: %w", err)
	}

	c.fileID = file.Id
	slog.InfoContext(ctx, "Created ledger file on Drive",
		"file_id", c.fileID, "name", c.fileName, "bytes", len(body))
	return nil
}
