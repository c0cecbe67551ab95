package bundle

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrUnresolved is returned when no repository holds a declared coordinate.
var ErrUnresolved = errors.New("unresolved dependency")

// Artifact is a resolved archive on local disk.
type Artifact struct {
	Coordinate Coordinate
	Path       string
}

// Repository fetches archives by coordinate. found is false when the
// repository simply does not have the coordinate.
type Repository interface {
	Fetch(ctx context.Context, c Coordinate) (file string, found bool, err error)
	String() string
}

// S3Config holds credentials for s3:// repositories.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// ResolverOptions configures NewResolver.
type ResolverOptions struct {
	Repositories []string
	BaseDir      string // relative directory repositories resolve against
	CacheDir     string // downloads from remote repositories land here
	HTTPClient   *http.Client
	S3           S3Config
	Logger       *zap.Logger
}

// Resolver resolves coordinates against repositories in declaration order.
type Resolver struct {
	repos []Repository
	memo  *lru.Cache[Coordinate, Artifact]
	log   *zap.Logger
}

func NewResolver(opts ResolverOptions) (*Resolver, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.CacheDir == "" {
		opts.CacheDir = filepath.Join(os.TempDir(), "quizgame-bundle-cache")
	}
	repos := make([]Repository, 0, len(opts.Repositories))
	for _, spec := range opts.Repositories {
		r, err := parseRepository(spec, opts)
		if err != nil {
			return nil, err
		}
		repos = append(repos, r)
	}
	memo, err := lru.New[Coordinate, Artifact](256)
	if err != nil {
		return nil, err
	}
	return &Resolver{repos: repos, memo: memo, log: opts.Logger.Named("resolver")}, nil
}

// NewResolverFromRepositories builds a resolver over ready-made repositories.
func NewResolverFromRepositories(log *zap.Logger, repos ...Repository) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	memo, _ := lru.New[Coordinate, Artifact](256)
	return &Resolver{repos: repos, memo: memo, log: log.Named("resolver")}
}

func parseRepository(spec string, opts ResolverOptions) (Repository, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("empty repository")
	}
	root := spec
	if u, err := url.Parse(spec); err == nil {
		switch u.Scheme {
		case "http", "https":
			return &httpRepository{base: strings.TrimRight(spec, "/"), client: opts.HTTPClient, cacheDir: opts.CacheDir}, nil
		case "s3":
			return newS3Repository(u, opts.S3, opts.CacheDir)
		case "file":
			// file://third_party/archives parses its first segment as the host.
			root = u.Path
			if u.Host != "" && u.Host != "localhost" {
				root = u.Host + u.Path
			}
			root = filepath.FromSlash(root)
		}
	}
	if !filepath.IsAbs(root) && opts.BaseDir != "" {
		root = filepath.Join(opts.BaseDir, root)
	}
	return dirRepository{root: root}, nil
}

// Resolve returns exactly one artifact per runtime dependency, in order.
func (r *Resolver) Resolve(ctx context.Context, deps []Dependency) ([]Artifact, error) {
	out := make([]Artifact, 0, len(deps))
	for _, dep := range deps {
		if dep.Scope == ScopeTest {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a, err := r.resolveOne(ctx, dep.Coordinate)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *Resolver) resolveOne(ctx context.Context, c Coordinate) (Artifact, error) {
	if a, ok := r.memo.Get(c); ok {
		return a, nil
	}
	tried := make([]string, 0, len(r.repos))
	for _, repo := range r.repos {
		tried = append(tried, repo.String())
		file, found, err := repo.Fetch(ctx, c)
		if err != nil {
			r.log.Warn("repository fetch failed", zap.String("repository", repo.String()), zap.Stringer("coordinate", c), zap.Error(err))
			continue
		}
		if !found {
			continue
		}
		a := Artifact{Coordinate: c, Path: file}
		r.memo.Add(c, a)
		r.log.Info("resolved", zap.Stringer("coordinate", c), zap.String("repository", repo.String()), zap.String("path", file))
		return a, nil
	}
	return Artifact{}, errors.Wrapf(ErrUnresolved, "%s (tried %s)", c, strings.Join(tried, ", "))
}

type dirRepository struct{ root string }

func (d dirRepository) String() string { return d.root }

func (d dirRepository) Fetch(_ context.Context, c Coordinate) (string, bool, error) {
	p := filepath.Join(d.root, filepath.FromSlash(c.Layout()))
	info, err := os.Stat(p)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if info.IsDir() {
		return "", false, errors.Errorf("%s is a directory", p)
	}
	return p, true, nil
}

type httpRepository struct {
	base     string
	client   *http.Client
	cacheDir string
}

func (h *httpRepository) String() string { return h.base }

func (h *httpRepository) Fetch(ctx context.Context, c Coordinate) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.base+"/"+c.Layout(), nil)
	if err != nil {
		return "", false, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", false, errors.Errorf("GET %s: HTTP %d", req.URL, resp.StatusCode)
	}
	dest := cachePath(h.cacheDir, "http", c)
	if err := writeAtomic(dest, resp.Body); err != nil {
		return "", false, err
	}
	return dest, true, nil
}

type s3Repository struct {
	client   *minio.Client
	bucket   string
	prefix   string
	cacheDir string
}

func newS3Repository(u *url.URL, cfg S3Config, cacheDir string) (*s3Repository, error) {
	if u.Host == "" {
		return nil, errors.Errorf("s3 repository %s: missing bucket", u)
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.Errorf("s3 repository %s: endpoint is required", u)
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init s3 client")
	}
	return &s3Repository{client: client, bucket: u.Host, prefix: strings.Trim(u.Path, "/"), cacheDir: cacheDir}, nil
}

func (s *s3Repository) String() string { return "s3://" + path.Join(s.bucket, s.prefix) }

func (s *s3Repository) Fetch(ctx context.Context, c Coordinate) (string, bool, error) {
	key := path.Join(s.prefix, c.Layout())
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", false, nil
		}
		return "", false, err
	}
	dest := cachePath(s.cacheDir, "s3", c)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", false, err
	}
	if err := s.client.FGetObject(ctx, s.bucket, key, dest, minio.GetObjectOptions{}); err != nil {
		return "", false, errors.Wrapf(err, "download s3://%s/%s", s.bucket, key)
	}
	return dest, true, nil
}

func cachePath(cacheDir, kind string, c Coordinate) string {
	return filepath.Join(cacheDir, kind, filepath.FromSlash(c.Layout()))
}

func writeAtomic(dest string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
