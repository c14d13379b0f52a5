// Package prof pushes continuous profiles to a Pyroscope server.
package prof

import (
	"context"
	"runtime"

	"github.com/grafana/pyroscope-go"

	"github.com/j4m-solutions/rudiweb/internal/log"
	"github.com/j4m-solutions/rudiweb/internal/xerrors"
)

type Options struct {
	Enabled              bool
	AppName              string
	ServerAddress        string
	AuthToken            string
	TenantID             string
	Tags                 map[string]string
	ProfileMutexFraction int
	BlockProfileRate     int
}

// all profile types; the delta profiles are cheap with godeltaprof
var profileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
	pyroscope.ProfileMutexCount,
	pyroscope.ProfileMutexDuration,
	pyroscope.ProfileBlockCount,
	pyroscope.ProfileBlockDuration,
}

// Start begins pushing profiles. The returned stop function is never
// nil, so callers can defer it unconditionally.
func Start(ctx context.Context, opts Options) (func(), error) {
	L := log.FromContext(ctx)
	nop := func() {}

	if !opts.Enabled {
		L.Info(ctx, "pyroscope disabled")
		return nop, nil
	}
	if opts.ServerAddress == "" {
		err := xerrors.New("pyroscope enabled without a server address")
		L.Error(ctx, err, "pyroscope options")
		return nop, err
	}

	if opts.ProfileMutexFraction > 0 {
		runtime.SetMutexProfileFraction(opts.ProfileMutexFraction)
	}
	if opts.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(opts.BlockProfileRate)
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: opts.AppName,
		ServerAddress:   opts.ServerAddress,
		AuthToken:       opts.AuthToken,
		TenantID:        opts.TenantID,
		Tags:            opts.Tags,
		ProfileTypes:    profileTypes,
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed",
			"server_address", opts.ServerAddress,
			"app_name", opts.AppName,
		)
		return nop, err
	}

	L.Info(ctx, "pyroscope started",
		"server_address", opts.ServerAddress,
		"app_name", opts.AppName,
	)
	return func() {
		profiler.Stop()
		L.Info(context.Background(), "pyroscope stopped", "app_name", opts.AppName)
	}, nil
}
