package main

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{port: 8080, roomTimeout: time.Hour}, false},
		{"tls cert without key", Config{port: 8080, tlsCert: "cert.pem"}, true},
		{"tls key without cert", Config{port: 8080, tlsKey: "key.pem"}, true},
		{"tls pair", Config{port: 8080, tlsCert: "cert.pem", tlsKey: "key.pem"}, false},
		{"port too low", Config{port: 0}, true},
		{"port too high", Config{port: 70000}, true},
		{"negative room timeout", Config{port: 8080, roomTimeout: -time.Minute}, true},
		{"zero room timeout disables reaper", Config{port: 8080}, false},
	} {
		err := tc.cfg.validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: validate() = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}
}
