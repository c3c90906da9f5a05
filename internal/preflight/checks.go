package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"slipscan/internal/config"
	"slipscan/internal/ranks"
)

// minFreeBytes is the free-space floor below which the data directory check
// fails. The library database and scan cache stay small, so this is only
// meant to catch an essentially full disk.
const minFreeBytes = 100 << 20

// CheckReadableDirectory verifies that the directory exists and can be
// listed.
func CheckReadableDirectory(name, path string) Result {
	result, info := statDirectory(name, path)
	if info == nil {
		return result
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable)", path)}
}

// CheckWritableDirectory verifies that the directory exists and is
// readable and writable.
func CheckWritableDirectory(name, path string) Result {
	result, info := statDirectory(name, path)
	if info == nil {
		return result
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func statDirectory(name, path string) (Result, os.FileInfo) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}, nil
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}, nil
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}, nil
	}
	return Result{}, info
}

// CheckFreeSpace verifies the filesystem holding path has headroom for the
// library and cache files.
func CheckFreeSpace(name, path string) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%s (%.1f GiB free)", path, float64(free)/(1<<30))
	if free < minFreeBytes {
		return Result{Name: name, Detail: detail + " (error: low disk space)"}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckRankEndpoint verifies the Slippi GraphQL endpoint answers requests.
// It uses a short timeout and treats an unknown test profile as healthy.
func CheckRankEndpoint(ctx context.Context, cfg *config.Config) Result {
	const name = "Rank endpoint"

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := ranks.NewClient(ranks.Config{
		GraphQLURL:     cfg.Slippi.GraphQLURL,
		UserAgent:      cfg.Slippi.UserAgent,
		TimeoutSeconds: 5,
	})
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeEndpointError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

func summarizeEndpointError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (endpoint unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (endpoint unreachable)"
	}
	return err.Error()
}
