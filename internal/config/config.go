package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Path string
	}
	Download struct {
		DataDir string
	}
	Search struct {
		MatchThreshold int
		// Per-kind reject word lists; comma separated in env form.
		RejectWordsEBook     []string
		RejectWordsAudioBook []string
		RejectWordsMagazine  []string
		// Size bounds in MB; zero disables a bound.
		MaxSizeEBookMB     int64
		MinSizeEBookMB     int64
		MaxSizeAudioBookMB int64
		MinSizeAudioBookMB int64
		MaxSizeMagazineMB  int64
		MinSizeMagazineMB  int64
		// Cooldown for "category has no sources" warnings.
		WarnCooldownSeconds int
	}
	Clients struct {
		NZBURL    string
		NZBAPIKey string
		NZBPaused bool
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
	Auth struct {
		JWTSecret        string
		RegisterPassword string
		TokenTTLMinutes  int
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("BOOKARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.path", "data/bookarr.db")
	v.SetDefault("download.datadir", "data/downloads")
	v.SetDefault("search.matchthreshold", 90)
	v.SetDefault("search.rejectwordsebook", []string{"audiobook", "mp3", "m4b", "cbr", "cbz"})
	v.SetDefault("search.rejectwordsaudiobook", []string{"epub", "mobi", "pdf"})
	v.SetDefault("search.rejectwordsmagazine", []string{})
	v.SetDefault("search.maxsizeebookmb", 0)
	v.SetDefault("search.minsizeebookmb", 0)
	v.SetDefault("search.maxsizeaudiobookmb", 0)
	v.SetDefault("search.minsizeaudiobookmb", 0)
	v.SetDefault("search.maxsizemagazinemb", 0)
	v.SetDefault("search.minsizemagazinemb", 0)
	v.SetDefault("search.warncooldownseconds", 1800)
	v.SetDefault("clients.nzburl", "")
	v.SetDefault("clients.nzbapikey", "")
	v.SetDefault("clients.nzbpaused", false)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "bookarr-snatches")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.registerpassword", "")
	v.SetDefault("auth.tokenttlminutes", 1440)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
