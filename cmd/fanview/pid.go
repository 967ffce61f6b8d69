package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/srodi/fanview/pkg/commands"
	"github.com/srodi/fanview/pkg/config"
)

const stateTimeout = 2 * time.Second

func addPIDFlags(cmd *cobra.Command) {
	cmd.Flags().Int("pid", 0, "host process to measure (defaults to the pid reported by the running serve instance)")
	cmd.Flags().String("addr", "", "address of the running serve instance (overrides server.addr)")
}

// resolvePID returns --pid when given, otherwise asks the serve instance at
// server.addr which process hosts the panels.
func resolvePID(cmd *cobra.Command, cfg config.Config) (int, error) {
	if pid, _ := cmd.Flags().GetInt("pid"); pid > 0 {
		return pid, nil
	}
	addr := cfg.Server.Addr
	if flag, _ := cmd.Flags().GetString("addr"); flag != "" {
		addr = flag
	}
	pid, err := fetchHostPID(cmd.Context(), addr)
	if err != nil {
		return 0, fmt.Errorf("no --pid given and no fanview server answering at %s: %w", addr, err)
	}
	return pid, nil
}

func fetchHostPID(ctx context.Context, addr string) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, stateTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/v1/state", nil)
	if err != nil {
		return 0, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("GET /v1/state: %s", resp.Status)
	}

	var st commands.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return 0, fmt.Errorf("decoding state: %w", err)
	}
	if st.HostPID <= 0 {
		return 0, fmt.Errorf("server reported no host pid")
	}
	return st.HostPID, nil
}
