// Package simulate activates an execution plan and drives a seeded
// acknowledgment simulation against a running coordinator.
package simulate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds simulate command configuration.
type Config struct {
	Addr           string        `env:"LOCKSTEP_COORDINATOR_ADDR"     envDefault:"localhost:8080"`
	PlanID         string        `env:"LOCKSTEP_SIMULATE_PLAN"`
	OrganizationID string        `env:"LOCKSTEP_SIMULATE_ORG"          envDefault:"org-simulation"`
	ScenarioID     string        `env:"LOCKSTEP_SIMULATE_SCENARIO"`
	TriggeredBy    string        `env:"LOCKSTEP_SIMULATE_TRIGGERED_BY" envDefault:"simulate-cli"`
	TargetMinutes  float64       `env:"LOCKSTEP_SIMULATE_MINUTES"      envDefault:"30"`
	Seed           int64         `env:"LOCKSTEP_SIMULATE_SEED"`
	Watch          bool          `env:"LOCKSTEP_SIMULATE_WATCH"        envDefault:"true"`
	Timeout        time.Duration `env:"LOCKSTEP_SIMULATE_TIMEOUT"      envDefault:"45m"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "coordinator HTTP address")
	fs.StringVar(&cfg.PlanID, "plan", cfg.PlanID, "plan to activate")
	fs.StringVar(&cfg.OrganizationID, "org", cfg.OrganizationID, "organization for the activation")
	fs.StringVar(&cfg.ScenarioID, "scenario", cfg.ScenarioID, "optional scenario for the activation")
	fs.StringVar(&cfg.TriggeredBy, "triggered-by", cfg.TriggeredBy, "actor recorded on the activation")
	fs.Float64Var(&cfg.TargetMinutes, "minutes", cfg.TargetMinutes, "target acknowledgment window in minutes")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for the acknowledgment schedule")
	fs.BoolVar(&cfg.Watch, "watch", cfg.Watch, "stream instance events until coordination completes")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall command timeout")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type activationResponse struct {
	Instance struct {
		ID string `json:"id"`
	} `json:"instance"`
	StakeholdersNotified int `json:"stakeholders_notified"`
}

type runResponse struct {
	Entries []struct {
		StakeholderID string  `json:"stakeholder_id"`
		DelaySeconds  float64 `json:"delay_seconds"`
	} `json:"entries"`
}

// Run executes the simulate command against the configured coordinator.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if strings.TrimSpace(cfg.PlanID) == "" {
		return errors.New("plan id is required")
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	base := "http://" + strings.TrimPrefix(strings.TrimSpace(cfg.Addr), "http://")
	client := &http.Client{}

	activation, err := activate(ctx, client, base, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "activated instance %s (%d stakeholders notified)\n",
		activation.Instance.ID, activation.StakeholdersNotified)

	run, err := startSimulation(ctx, client, base, activation.Instance.ID, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "simulation scheduled: %d acknowledgments over %.1f minutes (seed %d)\n",
		len(run.Entries), cfg.TargetMinutes, cfg.Seed)

	if !cfg.Watch {
		return nil
	}
	return watchEvents(ctx, client, base, activation.Instance.ID, out)
}

func activate(ctx context.Context, client *http.Client, base string, cfg Config) (activationResponse, error) {
	body, err := json.Marshal(map[string]string{
		"organization_id": cfg.OrganizationID,
		"scenario_id":     cfg.ScenarioID,
		"plan_id":         cfg.PlanID,
		"triggered_by":    cfg.TriggeredBy,
	})
	if err != nil {
		return activationResponse{}, fmt.Errorf("encode activation: %w", err)
	}
	var activation activationResponse
	if err := postJSON(ctx, client, base+"/api/v1/activations", body, http.StatusCreated, &activation); err != nil {
		return activationResponse{}, fmt.Errorf("activate plan %s: %w", cfg.PlanID, err)
	}
	return activation, nil
}

func startSimulation(ctx context.Context, client *http.Client, base, instanceID string, cfg Config) (runResponse, error) {
	body, err := json.Marshal(map[string]any{
		"target_minutes": cfg.TargetMinutes,
		"seed":           cfg.Seed,
	})
	if err != nil {
		return runResponse{}, fmt.Errorf("encode simulation request: %w", err)
	}
	var run runResponse
	url := base + "/api/v1/instances/" + instanceID + "/simulation"
	if err := postJSON(ctx, client, url, body, http.StatusAccepted, &run); err != nil {
		return runResponse{}, fmt.Errorf("start simulation: %w", err)
	}
	return run, nil
}

func postJSON(ctx context.Context, client *http.Client, url string, body []byte, want int, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// watchEvents streams the instance event feed and returns once coordination
// completes or the instance finishes.
func watchEvents(ctx context.Context, client *http.Client, base, instanceID string, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/v1/instances/"+instanceID+"/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("open event stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	var eventType string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			fmt.Fprintf(out, "%s %s\n", eventType, strings.TrimPrefix(line, "data: "))
			if eventType == "coordination-complete" {
				return nil
			}
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("read event stream: %w", err)
	}
	return nil
}
