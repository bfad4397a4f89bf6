package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/viper"
)

// adminBaseURL resolves the target aggregator admin address from the
// MARKETENGINE_ADMIN_ADDR environment variable (bound via viper, same as
// the rest of the engine's config surface), falling back to the default
// cmd/aggregator listen address.
func adminBaseURL() string {
	addr := viper.GetString("ADMIN_ADDR")
	if addr == "" {
		addr = "http://127.0.0.1:8090"
	}
	return addr
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func init() {
	viper.SetEnvPrefix("marketengine")
	viper.AutomaticEnv()
}

// getJSON issues a GET against the admin surface and decodes the response
// body into out.
func getJSON(path string, out interface{}) error {
	url := adminBaseURL() + path
	resp, err := httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("cli: GET %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("cli: GET %s: status %d: %s", url, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
