package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/KingRain/Parsec/internal/common/deadline"
)

// FileItem is one directory entry.
type FileItem struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url,omitempty"`
}

func (f FileItem) IsDir() bool { return f.Type == "dir" }

// File is a decoded file body.
type File struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Content string `json:"content"`
}

// Contents is what a contents path resolves to: a listing or a file.
type Contents struct {
	Items []FileItem
	File  *File
}

type fileObject struct {
	FileItem
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// Contents fetches path and returns the directory listing or the file.
func (c *Client) Contents(ctx context.Context, owner, repo, path string) (*Contents, error) {
	if err := ValidateRepo(owner, repo); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	p := repoPath(owner, repo) + "/contents/" + escapePath(path)
	if err := c.get(ctx, p, nil, &raw); err != nil {
		return nil, err
	}

	if trimmed := strings.TrimSpace(string(raw)); strings.HasPrefix(trimmed, "[") {
		var items []FileItem
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("github: %s: decode listing: %w", p, err)
		}
		return &Contents{Items: items}, nil
	}

	var obj fileObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("github: %s: decode file: %w", p, err)
	}
	if obj.Type != "" && obj.Type != "file" {
		return nil, ErrNotFile
	}
	if obj.Size > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	body, err := c.fileBody(ctx, obj)
	if err != nil {
		return nil, err
	}
	return &Contents{File: &File{Name: obj.Name, Path: obj.Path, Size: obj.Size, Content: body}}, nil
}

func (c *Client) fileBody(ctx context.Context, obj fileObject) (string, error) {
	if obj.Encoding == "base64" && obj.Content != "" {
		clean := strings.NewReplacer("\n", "", "\r", "").Replace(obj.Content)
		b, err := base64.StdEncoding.DecodeString(clean)
		if err != nil {
			return "", fmt.Errorf("github: %s: decode content: %w", obj.Path, err)
		}
		return string(b), nil
	}
	if obj.DownloadURL == "" {
		return obj.Content, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, obj.DownloadURL, nil)
	if err != nil {
		return "", err
	}
	if tok := TokenFrom(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("github: download %s: %w", obj.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Path: obj.Path, Code: resp.StatusCode, Status: resp.Status}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, MaxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("github: download %s: %w", obj.Path, err)
	}
	if len(b) > MaxFileSize {
		return "", ErrFileTooLarge
	}
	return string(b), nil
}

func (c *Client) ListDir(ctx context.Context, owner, repo, path string) ([]FileItem, error) {
	cs, err := c.Contents(ctx, owner, repo, path)
	if err != nil {
		return nil, err
	}
	if cs.File != nil {
		return nil, ErrNotDirectory
	}
	return cs.Items, nil
}

func (c *Client) GetFile(ctx context.Context, owner, repo, path string) (*File, error) {
	cs, err := c.Contents(ctx, owner, repo, path)
	if err != nil {
		return nil, err
	}
	if cs.File == nil {
		return nil, ErrNotFile
	}
	return cs.File, nil
}

// FindFile walks the tree depth first, at most maxDepth directories below
// the root, and returns every file called name. A directory that cannot be
// listed is logged and skipped.
func (c *Client) FindFile(ctx context.Context, owner, repo, name string, maxDepth int) ([]FileItem, error) {
	if err := ValidateRepo(owner, repo); err != nil {
		return nil, err
	}
	var hits []FileItem
	var walk func(path string, depth int)
	walk = func(path string, depth int) {
		if ctx.Err() != nil {
			return
		}
		items, err := c.ListDir(ctx, owner, repo, path)
		if err != nil {
			c.log.WithError(err).WithField("path", path).Debug("search skipped directory")
			return
		}
		for _, it := range items {
			switch {
			case it.Type == "file" && it.Name == name:
				hits = append(hits, it)
			case it.IsDir() && depth < maxDepth:
				walk(it.Path, depth+1)
			}
		}
	}
	walk("", 0)
	return hits, ctx.Err()
}

// FetchManifest returns the raw package.json of the repository: the root
// one if present, else the first found within DefaultSearchDepth.
func (c *Client) FetchManifest(ctx context.Context, owner, repo string) ([]byte, error) {
	if err := ValidateRepo(owner, repo); err != nil {
		return nil, err
	}
	log := c.log.WithField("owner", owner).WithField("repo", repo)
	return deadline.Do(ctx, c.manifestTimeout, func(ctx context.Context) ([]byte, error) {
		f, err := c.GetFile(ctx, owner, repo, "package.json")
		if err == nil {
			return []byte(f.Content), nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !rootMissing(err) {
			return nil, fmt.Errorf("github: root manifest: %w", err)
		}
		log.WithError(err).Debug("no root manifest; searching")

		hits, err := c.FindFile(ctx, owner, repo, "package.json", DefaultSearchDepth)
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			f, err := c.GetFile(ctx, owner, repo, h.Path)
			if err != nil {
				log.WithError(err).WithField("path", h.Path).Debug("manifest unreadable")
				continue
			}
			return []byte(f.Content), nil
		}
		return nil, ErrManifestNotFound
	})
}

// rootMissing reports whether a failed root package.json read means the
// file is not usable there, as opposed to GitHub refusing or failing.
func rootMissing(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotFile) || errors.Is(err, ErrFileTooLarge)
}

// ListFiles returns up to maxFiles file entries of the whole repository,
// depth first. Only a failure to list the root is an error.
func (c *Client) ListFiles(ctx context.Context, owner, repo string, maxFiles int) ([]FileItem, error) {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	root, err := c.ListDir(ctx, owner, repo, "")
	if err != nil {
		return nil, err
	}
	var files []FileItem
	var walk func(items []FileItem)
	walk = func(items []FileItem) {
		for _, it := range items {
			if len(files) >= maxFiles || ctx.Err() != nil {
				return
			}
			if !it.IsDir() {
				files = append(files, it)
				continue
			}
			sub, err := c.ListDir(ctx, owner, repo, it.Path)
			if err != nil {
				c.log.WithError(err).WithField("path", it.Path).Debug("listing skipped directory")
				continue
			}
			walk(sub)
		}
	}
	walk(root)
	return files, ctx.Err()
}
