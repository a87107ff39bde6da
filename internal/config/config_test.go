package config

import (
	"testing"
	"time"
)

const (
	testAdmin = "0x00000000000000000000000000000000000000a1"
	testPool  = "0x00000000000000000000000000000000000000f0"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
	}{
		{
			name: "minimal config",
			envVars: map[string]string{
				"ADMIN_ADDRESS": testAdmin,
				"POOL_ADDRESS":  testPool,
			},
			wantErr: false,
		},
		{
			name: "custom config",
			envVars: map[string]string{
				"ADMIN_ADDRESS":     testAdmin,
				"POOL_ADDRESS":      testPool,
				"SERVICE_NAME":      "test-service",
				"PAYOUT_BUDGET":     "5000",
				"TIMELOCK_DURATION": "48h",
				"BATCH_INTERVAL":    "2",
			},
			wantErr: false,
		},
		{
			name:    "missing addresses",
			envVars: map[string]string{},
			wantErr: true,
		},
		{
			name: "admin equals pool",
			envVars: map[string]string{
				"ADMIN_ADDRESS": testAdmin,
				"POOL_ADDRESS":  testAdmin,
			},
			wantErr: true,
		},
		{
			name: "invalid budget",
			envVars: map[string]string{
				"ADMIN_ADDRESS": testAdmin,
				"POOL_ADDRESS":  testPool,
				"PAYOUT_BUDGET": "not-a-number",
			},
			wantErr: true,
		},
		{
			name: "zero budget",
			envVars: map[string]string{
				"ADMIN_ADDRESS": testAdmin,
				"POOL_ADDRESS":  testPool,
				"PAYOUT_BUDGET": "0",
			},
			wantErr: true,
		},
		{
			name: "batch interval too large",
			envVars: map[string]string{
				"ADMIN_ADDRESS":  testAdmin,
				"POOL_ADDRESS":   testPool,
				"BATCH_INTERVAL": "4",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if cfg.ServiceName == "" {
					t.Error("ServiceName should not be empty")
				}
				if cfg.TimelockDuration <= 0 {
					t.Error("TimelockDuration should be positive")
				}
			}
		})
	}
}

func TestParsedAccessors(t *testing.T) {
	t.Setenv("ADMIN_ADDRESS", testAdmin)
	t.Setenv("POOL_ADDRESS", testPool)
	t.Setenv("DISTRIBUTION_THRESHOLD", "1000")
	t.Setenv("PAYOUT_BUDGET", "100")
	t.Setenv("TIMELOCK_DURATION", "24h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Admin().Hex() == (cfg.Pool()).Hex() {
		t.Error("Admin and Pool should differ")
	}
	if cfg.Threshold().Uint64() != 1000 {
		t.Errorf("Threshold = %s, want 1000", cfg.Threshold().Dec())
	}
	if cfg.Budget().Uint64() != 100 {
		t.Errorf("Budget = %s, want 100", cfg.Budget().Dec())
	}
	if cfg.TimelockDuration != 24*time.Hour {
		t.Errorf("TimelockDuration = %s, want 24h", cfg.TimelockDuration)
	}
}
