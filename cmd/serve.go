// Copyright 2025 The respcore Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/corvusd/respcore/common"
	"github.com/corvusd/respcore/confengine"
	"github.com/corvusd/respcore/internal/metrics"
	"github.com/corvusd/respcore/internal/monitor"
	"github.com/corvusd/respcore/internal/sigs"
	"github.com/corvusd/respcore/logger"
	"github.com/corvusd/respcore/server"
)

type monitorConfig struct {
	QueueSize int `config:"queueSize"`
}

func setupLogger(conf *confengine.Config) error {
	var opts logger.Options
	if err := conf.UnpackChild("logger", &opts); err != nil {
		return err
	}

	if opts.Filename == "" {
		opts.Filename = "respd.log"
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 10
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 100
	}

	logger.SetOptions(opts)
	return nil
}

// registerMonitorRoute exposes the monitor tap over HTTP as a newline per
// entry stream, the same shape as redis-cli's MONITOR output, so an
// operator can `curl` it without a RESP client.
func registerMonitorRoute(srv *server.Server, mon *monitor.Monitor, queueSize int) {
	srv.RegisterGetRoute("/debug/monitor", func(w http.ResponseWriter, r *http.Request) {
		q := mon.Subscribe(queueSize)
		defer mon.Unsubscribe(q)

		flusher, _ := w.(http.Flusher)
		for {
			select {
			case <-r.Context().Done():
				return
			default:
			}

			v, ok := q.PopTimeout(30 * time.Second)
			if !ok {
				continue
			}
			entry, ok := v.(monitor.Entry)
			if !ok {
				continue
			}

			fmt.Fprintln(w, entry.String())
			if flusher != nil {
				flusher.Flush()
			}
		}
	})
}

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the RESP proxy",
	Run: func(cmd *cobra.Command, args []string) {
		conf, err := confengine.LoadConfigPath(serveConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}

		if err := setupLogger(conf); err != nil {
			fmt.Fprintf(os.Stderr, "failed to configure logger: %v\n", err)
			os.Exit(1)
		}

		monCfg := monitorConfig{QueueSize: 64}
		if err := conf.UnpackChild("monitor", &monCfg); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load monitor config: %v\n", err)
			os.Exit(1)
		}
		mon := monitor.New()

		info := common.GetBuildInfo()
		metrics.BuildInfo.WithLabelValues(info.Version, info.GitHash, info.Time).Set(1)

		stopUptime := make(chan struct{})
		metrics.StartUptimeReporter(stopUptime)
		defer close(stopUptime)

		proxy, err := server.NewProxy(conf, mon)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create proxy: %v\n", err)
			os.Exit(1)
		}

		debug, err := server.New(conf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create debug server: %v\n", err)
			os.Exit(1)
		}
		if debug != nil {
			registerMonitorRoute(debug, mon, monCfg.QueueSize)
			go func() {
				if err := debug.ListenAndServe(); err != nil {
					logger.Errorf("debug server stopped: %v", err)
				}
			}()
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- proxy.Serve(ctx)
		}()

		var reloadTotal int
		for {
			select {
			case err := <-done:
				if err != nil {
					fmt.Fprintf(os.Stderr, "proxy stopped: %v\n", err)
					os.Exit(1)
				}
				return

			case <-sigs.Terminate():
				cancel()
				<-done
				return

			case <-sigs.Reload():
				reloadTotal++

				newConf, err := confengine.LoadConfigPath(serveConfigPath)
				if err != nil {
					logger.Errorf("failed to reload config (count=%d): %v", reloadTotal, err)
					continue
				}
				if err := setupLogger(newConf); err != nil {
					logger.Errorf("failed to reload config (count=%d): %v", reloadTotal, err)
					continue
				}
				logger.Infof("reloaded logger configuration (count=%d)", reloadTotal)
			}
		}
	},
	Example: "# respd serve --config respd.yaml",
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "respd.yaml", "Configuration file path")
	rootCmd.AddCommand(serveCmd)
}
