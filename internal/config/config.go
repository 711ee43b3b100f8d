// internal/config/config.go
package config

import (
    "fmt"
    "os"
    "time"

    "gopkg.in/yaml.v3"
)

type Config struct {
    Server     ServerConfig     `yaml:"server"`
    Database   DatabaseConfig   `yaml:"database"`
    Monitoring MonitoringConfig `yaml:"monitoring"`
    Alerting   AlertingConfig   `yaml:"alerting"`
    RateLimit  RateLimitConfig  `yaml:"rate_limit"`
    Prometheus PrometheusConfig `yaml:"prometheus"`
    Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
    Port         string        `yaml:"port"`
    ReadTimeout  time.Duration `yaml:"read_timeout"`
    WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
    Path            string        `yaml:"path"`
    CleanupInterval time.Duration `yaml:"cleanup_interval"`
    LogRetention    time.Duration `yaml:"log_retention"`
}

type MonitoringConfig struct {
    TickInterval     time.Duration `yaml:"tick_interval"`
    HealInterval     time.Duration `yaml:"heal_interval"`
    BatchSize        int           `yaml:"batch_size"`
    MaxConcurrent    int           `yaml:"max_concurrent"`
    FailureThreshold int           `yaml:"failure_threshold"`
    Cooldown         time.Duration `yaml:"cooldown"`
    MaxCooldown      time.Duration `yaml:"max_cooldown"`
    UptimeWindow     time.Duration `yaml:"uptime_window"`
    PassDeadline     time.Duration `yaml:"pass_deadline"`
}

type AlertingConfig struct {
    MaxAttempts  int           `yaml:"max_attempts"`
    BaseDelay    time.Duration `yaml:"base_delay"`
    MaxDelay     time.Duration `yaml:"max_delay"`
    SendTimeout  time.Duration `yaml:"send_timeout"`
    AppName      string        `yaml:"app_name"`
    DashboardURL string        `yaml:"dashboard_url"`
    SMTP         SMTPConfig    `yaml:"smtp"`
}

type SMTPConfig struct {
    Enabled  bool   `yaml:"enabled"`
    Host     string `yaml:"host"`
    Port     int    `yaml:"port"`
    Username string `yaml:"username"`
    Password string `yaml:"password"`
    From     string `yaml:"from"`
}

type RateLimitConfig struct {
    Enabled     bool          `yaml:"enabled"`
    Window      time.Duration `yaml:"window"`
    MaxRequests int           `yaml:"max_requests"`
}

type PrometheusConfig struct {
    Enabled     bool   `yaml:"enabled"`
    MetricsPath string `yaml:"metrics_path"`
}

type LoggingConfig struct {
    Level  string `yaml:"level"`
    Format string `yaml:"format"`
}

func Load(filename string) (*Config, error) {
    data, err := os.ReadFile(filename)
    if err != nil {
        return nil, fmt.Errorf("failed to read config file: %w", err)
    }

    var config Config
    if err := yaml.Unmarshal(data, &config); err != nil {
        return nil, fmt.Errorf("failed to parse YAML: %w", err)
    }

    setDefaults(&config)

    if err := validate(&config); err != nil {
        return nil, fmt.Errorf("invalid configuration: %w", err)
    }

    return &config, nil
}

// Default returns a configuration with every default applied, used when no
// config file is given.
func Default() *Config {
    var config Config
    setDefaults(&config)
    return &config
}

func setDefaults(config *Config) {
    if config.Server.Port == "" {
        config.Server.Port = ":8080"
    }
    if config.Server.ReadTimeout == 0 {
        config.Server.ReadTimeout = 15 * time.Second
    }
    if config.Server.WriteTimeout == 0 {
        config.Server.WriteTimeout = 15 * time.Second
    }

    if config.Database.Path == "" {
        config.Database.Path = "data/beacon.db"
    }
    if config.Database.CleanupInterval == 0 {
        config.Database.CleanupInterval = 6 * time.Hour
    }
    if config.Database.LogRetention == 0 {
        config.Database.LogRetention = 30 * 24 * time.Hour
    }

    if config.Monitoring.TickInterval == 0 {
        config.Monitoring.TickInterval = time.Minute
    }
    if config.Monitoring.HealInterval == 0 {
        config.Monitoring.HealInterval = 30 * time.Second
    }
    if config.Monitoring.BatchSize == 0 {
        config.Monitoring.BatchSize = 50
    }
    if config.Monitoring.MaxConcurrent == 0 {
        config.Monitoring.MaxConcurrent = 10
    }
    if config.Monitoring.FailureThreshold == 0 {
        config.Monitoring.FailureThreshold = 3
    }
    if config.Monitoring.Cooldown == 0 {
        config.Monitoring.Cooldown = time.Minute
    }
    if config.Monitoring.MaxCooldown == 0 {
        config.Monitoring.MaxCooldown = 30 * time.Minute
    }
    if config.Monitoring.UptimeWindow == 0 {
        config.Monitoring.UptimeWindow = 24 * time.Hour
    }
    if config.Monitoring.PassDeadline == 0 {
        config.Monitoring.PassDeadline = 55 * time.Second
    }

    if config.Alerting.MaxAttempts == 0 {
        config.Alerting.MaxAttempts = 3
    }
    if config.Alerting.BaseDelay == 0 {
        config.Alerting.BaseDelay = 2 * time.Second
    }
    if config.Alerting.MaxDelay == 0 {
        config.Alerting.MaxDelay = 30 * time.Second
    }
    if config.Alerting.SendTimeout == 0 {
        config.Alerting.SendTimeout = 10 * time.Second
    }
    if config.Alerting.AppName == "" {
        config.Alerting.AppName = "Beacon"
    }
    if config.Alerting.SMTP.Port == 0 {
        config.Alerting.SMTP.Port = 587
    }

    if config.RateLimit.Window == 0 {
        config.RateLimit.Window = time.Minute
    }
    if config.RateLimit.MaxRequests == 0 {
        config.RateLimit.MaxRequests = 100
    }

    if config.Prometheus.MetricsPath == "" {
        config.Prometheus.MetricsPath = "/metrics"
    }

    if config.Logging.Level == "" {
        config.Logging.Level = "info"
    }
    if config.Logging.Format == "" {
        config.Logging.Format = "text"
    }
}

func validate(config *Config) error {
    if config.Monitoring.FailureThreshold < 1 {
        return fmt.Errorf("monitoring.failure_threshold must be at least 1")
    }
    if config.Monitoring.Cooldown > config.Monitoring.MaxCooldown {
        return fmt.Errorf("monitoring.cooldown exceeds monitoring.max_cooldown")
    }
    if config.Monitoring.BatchSize < 1 {
        return fmt.Errorf("monitoring.batch_size must be at least 1")
    }
    if config.Monitoring.MaxConcurrent < 1 {
        return fmt.Errorf("monitoring.max_concurrent must be at least 1")
    }
    if config.Alerting.MaxAttempts < 1 {
        return fmt.Errorf("alerting.max_attempts must be at least 1")
    }
    if config.Alerting.SMTP.Enabled {
        if config.Alerting.SMTP.Host == "" {
            return fmt.Errorf("alerting.smtp.host is required when SMTP is enabled")
        }
        if config.Alerting.SMTP.From == "" {
            return fmt.Errorf("alerting.smtp.from is required when SMTP is enabled")
        }
    }
    if config.RateLimit.MaxRequests < 1 {
        return fmt.Errorf("rate_limit.max_requests must be at least 1")
    }
    return nil
}
