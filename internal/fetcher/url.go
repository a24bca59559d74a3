package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"path"

	"github.com/sirupsen/logrus"

	"github.com/davrell/licenseprobe/result"
)

// FetchURL downloads an archive from a direct URL into directory and
// returns its local path. The filename is taken from the trailing URL
// segment so the unpacker can sniff a sensible name.
func (c *Client) FetchURL(ctx context.Context, rawURL, directory string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", &result.Error{Type: result.ErrConfig, Path: rawURL, Err: err}
	}
	filename := path.Base(parsed.Path)
	if filename == "" || filename == "." || filename == "/" {
		return "", &result.Error{
			Type: result.ErrConfig,
			Path: rawURL,
			Err:  fmt.Errorf("cannot derive a filename from URL"),
		}
	}

	logrus.Infof("Downloading %s ...", rawURL)
	return c.download(ctx, rawURL, directory, filename, "")
}
