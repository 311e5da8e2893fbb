package config

import (
	"errors"
	"testing"
)

func env(values map[string]string) func(string) string {
	return func(k string) string { return values[k] }
}

func TestResolveCredential(t *testing.T) {
	prompted := func(v string) Prompter {
		return func(string) (string, error) { return v, nil }
	}

	tests := []struct {
		name    string
		network NetworkConfig
		env     map[string]string
		prompt  Prompter
		want    string
		wantErr bool
	}{
		{
			name:    "file wins",
			network: NetworkConfig{Security: SecurityWPA2, Credential: "fromfile1"},
			env:     map[string]string{CredentialEnv: "fromenv12"},
			prompt:  prompted("fromprompt"),
			want:    "fromfile1",
		},
		{
			name:    "env before prompt",
			network: NetworkConfig{Security: SecurityWPA2},
			env:     map[string]string{CredentialEnv: "fromenv12"},
			prompt:  prompted("fromprompt"),
			want:    "fromenv12",
		},
		{
			name:    "prompt",
			network: NetworkConfig{Security: SecurityWPA2},
			prompt:  prompted("fromprompt"),
			want:    "fromprompt",
		},
		{
			name:    "open network",
			network: NetworkConfig{Security: SecurityOpen},
			want:    "",
		},
		{
			name:    "nothing available",
			network: NetworkConfig{Security: SecurityWPA2},
			wantErr: true,
		},
		{
			name:    "env too short",
			network: NetworkConfig{Security: SecurityWPA2},
			env:     map[string]string{CredentialEnv: "short"},
			wantErr: true,
		},
		{
			name:    "empty prompt",
			network: NetworkConfig{Security: SecurityWPA2},
			prompt:  prompted(""),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tt.network
			err := ResolveCredential(&n, env(tt.env), tt.prompt)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveCredential() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && n.Credential != tt.want {
				t.Errorf("Credential = %q, want %q", n.Credential, tt.want)
			}
		})
	}
}

func TestResolveCredential_PromptError(t *testing.T) {
	boom := errors.New("boom")
	n := NetworkConfig{Security: SecurityWPA2}
	err := ResolveCredential(&n, nil, func(string) (string, error) { return "", boom })
	if !errors.Is(err, boom) {
		t.Errorf("ResolveCredential() error = %v, want boom", err)
	}
}
