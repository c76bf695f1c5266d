package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tbruckner/tasktriage/internal/apperr"
)

const (
	driveAPI    = "https://www.googleapis.com/drive/v3"
	driveUpload = "https://www.googleapis.com/upload/drive/v3"

	folderMIME = "application/vnd.google-apps.folder"
)

// Drive implements Backend over the Google Drive v3 REST API. It expects
// a ready bearer token; the OAuth dance happens outside this program.
type Drive struct {
	folderID string
	token    string
	client   *http.Client

	mu      sync.Mutex
	folders map[string]string // dir name -> folder id
}

// NewDrive creates a Drive backend rooted at the given folder ID.
func NewDrive(folderID, token string) *Drive {
	return &Drive{
		folderID: folderID,
		token:    token,
		client:   &http.Client{Timeout: 60 * time.Second},
		folders:  make(map[string]string),
	}
}

func (d *Drive) Name() string { return "gdrive" }

type driveFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

type driveFileList struct {
	Files         []driveFile `json:"files"`
	NextPageToken string      `json:"nextPageToken"`
}

func (d *Drive) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+d.token)
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drive API error: %w", err)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("drive API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// query runs a files.list query and returns all pages.
func (d *Drive) query(q string) ([]driveFile, error) {
	var files []driveFile
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("q", q)
		params.Set("fields", "nextPageToken, files(id, name, mimeType)")
		params.Set("pageSize", "1000")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		req, err := http.NewRequest("GET", driveAPI+"/files?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		resp, err := d.do(req)
		if err != nil {
			return nil, err
		}

		var page driveFileList
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decoding drive response: %w", err)
		}

		files = append(files, page.Files...)
		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

// findFolder resolves a period subfolder (e.g. "daily") under the root.
func (d *Drive) findFolder(dir string) (string, error) {
	d.mu.Lock()
	if id, ok := d.folders[dir]; ok {
		d.mu.Unlock()
		return id, nil
	}
	d.mu.Unlock()

	q := fmt.Sprintf("'%s' in parents and name = '%s' and mimeType = '%s' and trashed = false",
		d.folderID, dir, folderMIME)
	files, err := d.query(q)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", nil
	}

	d.mu.Lock()
	d.folders[dir] = files[0].ID
	d.mu.Unlock()
	return files[0].ID, nil
}

// findFile looks up a file by name inside a period subfolder.
func (d *Drive) findFile(path string) (*driveFile, string, error) {
	dir, name, err := splitDrivePath(path)
	if err != nil {
		return nil, "", err
	}
	folderID, err := d.findFolder(dir)
	if err != nil {
		return nil, "", err
	}
	if folderID == "" {
		return nil, "", fmt.Errorf("%w: gdrive folder %q", apperr.ErrDirMissing, dir)
	}
	q := fmt.Sprintf("'%s' in parents and name = '%s' and trashed = false", folderID, name)
	files, err := d.query(q)
	if err != nil {
		return nil, "", err
	}
	if len(files) == 0 {
		return nil, folderID, nil
	}
	return &files[0], folderID, nil
}

func splitDrivePath(path string) (dir, name string, err error) {
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("drive path must be dir/name, got %q", path)
	}
	return parts[0], parts[1], nil
}

func (d *Drive) List(dir string) ([]Entry, error) {
	folderID, err := d.findFolder(dir)
	if err != nil {
		return nil, err
	}
	if folderID == "" {
		return nil, fmt.Errorf("%w: gdrive folder %q", apperr.ErrDirMissing, dir)
	}
	files, err := d.query(fmt.Sprintf("'%s' in parents and trashed = false", folderID))
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, f := range files {
		if f.MimeType == folderMIME {
			continue
		}
		out = append(out, Entry{Name: f.Name, Path: dir + "/" + f.Name})
	}
	return out, nil
}

func (d *Drive) Read(path string) ([]byte, error) {
	file, _, err := d.findFile(path)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("gdrive: file not found: %s", path)
	}

	req, err := http.NewRequest("GET", driveAPI+"/files/"+file.ID+"?alt=media", nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gdrive: download %s: %w", path, err)
	}
	return data, nil
}

// Write uploads content, updating in place when the name already exists.
func (d *Drive) Write(path string, content []byte) error {
	file, folderID, err := d.findFile(path)
	if err != nil {
		return err
	}
	_, name, _ := splitDrivePath(path)

	if file != nil {
		// Media update of the existing file.
		req, err := http.NewRequest("PATCH", driveUpload+"/files/"+file.ID+"?uploadType=media", bytes.NewReader(content))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "text/plain")
		resp, err := d.do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		return nil
	}

	// Multipart create: metadata part then media part.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := mw.CreatePart(metaHeader)
	if err != nil {
		return err
	}
	meta := map[string]any{"name": name, "parents": []string{folderID}}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return err
	}

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", "text/plain")
	mediaPart, err := mw.CreatePart(mediaHeader)
	if err != nil {
		return err
	}
	if _, err := mediaPart.Write(content); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest("POST", driveUpload+"/files?uploadType=multipart", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())
	resp, err := d.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (d *Drive) Exists(path string) (bool, error) {
	file, _, err := d.findFile(path)
	if err != nil {
		return false, err
	}
	return file != nil, nil
}

func (d *Drive) EnsureDir(dir string) error {
	folderID, err := d.findFolder(dir)
	if err != nil {
		return err
	}
	if folderID != "" {
		return nil
	}

	meta := map[string]any{
		"name":     dir,
		"mimeType": folderMIME,
		"parents":  []string{d.folderID},
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	req, err := http.NewRequest("POST", driveAPI+"/files", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var created driveFile
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return fmt.Errorf("decoding drive response: %w", err)
	}
	d.mu.Lock()
	d.folders[dir] = created.ID
	d.mu.Unlock()
	return nil
}
