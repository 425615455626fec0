// Package kube implements remotefs.RemoteFs against a container's
// filesystem inside a Kubernetes pod, using the same "exec a shell
// command, parse its output" approach as backend/scp, but dispatched
// through client-go's pod exec subresource instead of SSH.
//
// Grounded on original_source/remotefs-fuse-cli/src/cli.rs's KubeArgs
// (namespace, pod, container, kubeconfig) and on client-go's own exec
// example (remotecommand.NewSPDYExecutor against the pod/exec
// subresource), the standard way `kubectl exec` itself is implemented.
package kube

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/remotecommand"

	"github.com/remotefs-rs/remotefs-fuse-go/internal/remotefs"
)

// Config identifies the target container and kubeconfig.
type Config struct {
	Kubeconfig string // path; empty means in-cluster config
	Namespace  string
	Pod        string
	Container  string
}

// Fs is a remotefs.RemoteFs that execs shell commands inside a pod's
// container. The zero value is not usable; use New.
type Fs struct {
	cfg        Config
	restConfig *rest.Config
	clientset  *kubernetes.Clientset
}

func New(cfg Config) *Fs {
	return &Fs{cfg: cfg}
}

func (f *Fs) Connect(ctx context.Context) error {
	var restCfg *rest.Config
	var err error
	if f.cfg.Kubeconfig != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", f.cfg.Kubeconfig)
	} else {
		restCfg, err = rest.InClusterConfig()
	}
	if err != nil {
		return fmt.Errorf("kube: loading config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return fmt.Errorf("kube: building clientset: %w", err)
	}

	f.restConfig = restCfg
	f.clientset = clientset
	return nil
}

func (f *Fs) Disconnect(ctx context.Context) error { return nil }

// run execs `sh -c command` in the target container, feeding it stdin
// (if non-nil) and copying its stdout into stdout; the same shell-driven
// shape backend/scp uses for its own operations.
func (f *Fs) run(ctx context.Context, command string, stdin io.Reader, stdout io.Writer) error {
	req := f.clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Namespace(f.cfg.Namespace).
		Name(f.cfg.Pod).
		SubResource("exec")

	req.VersionedParams(&corev1.PodExecOptions{
		Container: f.cfg.Container,
		Command:   []string{"sh", "-c", command},
		Stdin:     stdin != nil,
		Stdout:    true,
		Stderr:    true,
	}, scheme.ParameterCodec)

	executor, err := remotecommand.NewSPDYExecutor(f.restConfig, "POST", req.URL())
	if err != nil {
		return fmt.Errorf("%w: building executor: %v", remotefs.ErrIO, err)
	}

	var stderr bytes.Buffer
	err = executor.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: &stderr,
	})
	if err != nil {
		return classify(stderr.String(), err)
	}
	return nil
}

func (f *Fs) runOutput(ctx context.Context, command string) ([]byte, error) {
	var out bytes.Buffer
	if err := f.run(ctx, command, nil, &out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func classify(stderr string, err error) error {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "no such file"):
		return remotefs.ErrNoSuchFile
	case strings.Contains(lower, "permission denied"):
		return remotefs.ErrPermissionDenied
	default:
		return fmt.Errorf("%w: %s: %v", remotefs.ErrIO, strings.TrimSpace(stderr), err)
	}
}

func (f *Fs) Stat(ctx context.Context, path string) (remotefs.File, error) {
	out, err := f.runOutput(ctx, fmt.Sprintf("stat -c '%%s %%f' -- %s", shQuote(path)))
	if err != nil {
		return remotefs.File{}, err
	}
	return parseStat(path, string(out))
}

func (f *Fs) ListDir(ctx context.Context, path string) ([]remotefs.File, error) {
	out, err := f.runOutput(ctx, fmt.Sprintf("find %s -mindepth 1 -maxdepth 1 -printf '%%f\\n'", shQuote(path)))
	if err != nil {
		return nil, err
	}
	var files []remotefs.File
	for _, name := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if name == "" {
			continue
		}
		child, err := f.Stat(ctx, joinPath(path, name))
		if err != nil {
			continue
		}
		files = append(files, child)
	}
	return files, nil
}

func (f *Fs) CreateDir(ctx context.Context, path string, mode uint32) error {
	return f.run(ctx, fmt.Sprintf("mkdir -m %o -- %s", mode&0o7777, shQuote(path)), nil, io.Discard)
}

func (f *Fs) RemoveFile(ctx context.Context, path string) error {
	return f.run(ctx, fmt.Sprintf("rm -f -- %s", shQuote(path)), nil, io.Discard)
}

func (f *Fs) RemoveDir(ctx context.Context, path string) error {
	return f.run(ctx, fmt.Sprintf("rmdir -- %s", shQuote(path)), nil, io.Discard)
}

func (f *Fs) Symlink(ctx context.Context, newPath, target string) error {
	return f.run(ctx, fmt.Sprintf("ln -s -- %s %s", shQuote(target), shQuote(newPath)), nil, io.Discard)
}

func (f *Fs) Move(ctx context.Context, src, dest string) error {
	return f.run(ctx, fmt.Sprintf("mv -- %s %s", shQuote(src), shQuote(dest)), nil, io.Discard)
}

func (f *Fs) Setstat(ctx context.Context, path string, md remotefs.Metadata) error {
	if md.Mode != nil {
		if err := f.run(ctx, fmt.Sprintf("chmod %o -- %s", *md.Mode&0o7777, shQuote(path)), nil, io.Discard); err != nil {
			return err
		}
	}
	if md.Size != nil {
		if err := f.run(ctx, fmt.Sprintf("truncate -s %d -- %s", *md.Size, shQuote(path)), nil, io.Discard); err != nil {
			return err
		}
	}
	return nil
}

type closeFunc func() error

func (c closeFunc) Close() error { return c() }

type readCloser struct {
	io.Reader
	io.Closer
}

func (f *Fs) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	go func() {
		err := f.run(ctx, fmt.Sprintf("cat -- %s", shQuote(path)), nil, pw)
		pw.CloseWithError(err)
	}()
	return &readCloser{Reader: pr, Closer: closeFunc(func() error { return pr.Close() })}, nil
}

func (f *Fs) OnRead(ctx context.Context, r io.ReadCloser) error {
	return r.Close()
}

func (f *Fs) Create(ctx context.Context, path string, md remotefs.Metadata) (remotefs.WriteSeekCloser, error) {
	return nil, remotefs.ErrUnsupportedFeature
}

func (f *Fs) OnWritten(ctx context.Context, w remotefs.WriteSeekCloser) error {
	return remotefs.ErrUnsupportedFeature
}

func (f *Fs) OpenFile(ctx context.Context, path string, w io.Writer) error {
	return f.run(ctx, fmt.Sprintf("cat -- %s", shQuote(path)), nil, w)
}

func (f *Fs) CreateFile(ctx context.Context, path string, md remotefs.Metadata, r io.Reader) error {
	return f.run(ctx, fmt.Sprintf("cat > %s", shQuote(path)), r, io.Discard)
}

var _ remotefs.RemoteFs = (*Fs)(nil)

func parseStat(path, out string) (remotefs.File, error) {
	parts := strings.Fields(out)
	if len(parts) < 2 {
		return remotefs.File{}, fmt.Errorf("%w: unparsable stat output %q", remotefs.ErrIO, out)
	}
	size, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return remotefs.File{}, fmt.Errorf("%w: %v", remotefs.ErrIO, err)
	}
	rawMode, err := strconv.ParseUint(parts[1], 16, 32)
	if err != nil {
		return remotefs.File{}, fmt.Errorf("%w: %v", remotefs.ErrIO, err)
	}
	mode := uint32(rawMode) & 0o7777
	return remotefs.File{Path: path, Type: classifyType(uint32(rawMode)), Size: size, Mode: &mode}, nil
}

func classifyType(rawMode uint32) remotefs.FileType {
	switch rawMode & 0o170000 {
	case 0o040000:
		return remotefs.TypeDir
	case 0o120000:
		return remotefs.TypeSymlink
	default:
		return remotefs.TypeFile
	}
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
