package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/davrell/licenseprobe/result"
)

// DefaultIndexURL is the public PyPI instance.
const DefaultIndexURL = "https://pypi.org"

// pypiResponse is the subset of the PyPI JSON API we consume.
// See https://warehouse.pypa.io/api-reference/json.html
type pypiResponse struct {
	URLs []pypiFile `json:"urls"`
}

type pypiFile struct {
	Filename    string            `json:"filename"`
	PackageType string            `json:"packagetype"`
	URL         string            `json:"url"`
	Digests     map[string]string `json:"digests"`
	Yanked      bool              `json:"yanked"`
}

// FetchPackage downloads the artifact matching spec into directory and
// returns its local path. Wheels are preferred unless preferSdist is set;
// when the preferred distribution type does not exist, the other one is
// used as fallback.
func (c *Client) FetchPackage(ctx context.Context, spec PackageSpec, indexURL string, preferSdist bool, directory string) (string, error) {
	if indexURL == "" {
		indexURL = DefaultIndexURL
	}
	endpoint := fmt.Sprintf("%s/pypi/%s/json", strings.TrimSuffix(indexURL, "/"), url.PathEscape(spec.Name))
	if spec.Version != "" {
		endpoint = fmt.Sprintf("%s/pypi/%s/%s/json", strings.TrimSuffix(indexURL, "/"),
			url.PathEscape(spec.Name), url.PathEscape(spec.Version))
	}

	logrus.Debugf("Querying package index: %s", endpoint)
	release, err := c.queryIndex(ctx, endpoint, spec)
	if err != nil {
		return "", err
	}

	file := selectDistribution(release.URLs, preferSdist)
	if file == nil {
		return "", &result.Error{
			Type: result.ErrRetrieval,
			Path: spec.String(),
			Err:  fmt.Errorf("no downloadable distribution found"),
		}
	}

	logrus.Infof("Downloading %s ...", file.Filename)
	return c.download(ctx, file.URL, directory, file.Filename, file.Digests["sha256"])
}

func (c *Client) queryIndex(ctx context.Context, endpoint string, spec PackageSpec) (*pypiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &result.Error{Type: result.ErrRetrieval, Path: spec.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &result.Error{
			Type: result.ErrRetrieval,
			Path: spec.String(),
			Err:  fmt.Errorf("package not found on index"),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &result.Error{
			Type: result.ErrRetrieval,
			Path: spec.String(),
			Err:  fmt.Errorf("index returned status %s", resp.Status),
		}
	}

	var release pypiResponse
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, &result.Error{Type: result.ErrRetrieval, Path: spec.String(), Err: err}
	}
	return &release, nil
}

// selectDistribution picks the artifact to download. Yanked files are
// skipped; the preference decides between wheel and sdist with the other
// type as fallback.
func selectDistribution(files []pypiFile, preferSdist bool) *pypiFile {
	preferred, fallback := "bdist_wheel", "sdist"
	if preferSdist {
		preferred, fallback = "sdist", "bdist_wheel"
	}
	for _, wanted := range []string{preferred, fallback} {
		for i := range files {
			if files[i].Yanked {
				continue
			}
			if files[i].PackageType == wanted {
				return &files[i]
			}
		}
	}
	return nil
}
