package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	S3Endpoint  string `yaml:"s3_endpoint"`
	S3Bucket    string `yaml:"s3_bucket"`
	S3Prefix    string `yaml:"s3_prefix"`
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`

	ArtifactsBucket    string        `yaml:"artifacts_bucket"`
	ArtifactsPrefix    string        `yaml:"artifacts_prefix"`
	ArtifactsBaseURL   string        `yaml:"artifacts_base_url"`
	ArtifactsCacheFile string        `yaml:"artifacts_cache_file"`
	ArtifactsCacheTTL  time.Duration `yaml:"artifacts_cache_ttl"`

	RepoOwner  string `yaml:"repo_owner"`
	RepoName   string `yaml:"repo_name"`
	RepoURL    string `yaml:"repo_url"`
	RepoBranch string `yaml:"repo_branch"`

	GitHubToken string `yaml:"github_token"`

	QueryURL          string `yaml:"query_url"`
	ContainerRegistry string `yaml:"container_registry"`

	// PlatformExtensions maps a flavor's platform to its image file
	// extension for artifact URL construction.
	PlatformExtensions map[string]string `yaml:"platform_extensions"`
}

func New() *Config {
	return &Config{
		S3Endpoint: "s3.eu-central-1.amazonaws.com",
		S3Bucket:   "gardenlinux-glrd",
		S3Prefix:   "",

		ArtifactsBucket:    "gardenlinux-github-releases",
		ArtifactsPrefix:    "objects/",
		ArtifactsBaseURL:   "https://gardenlinux-github-releases.s3.amazonaws.com",
		ArtifactsCacheFile: "artifacts-cache.json.gz",
		ArtifactsCacheTTL:  time.Hour,

		RepoOwner:  "gardenlinux",
		RepoName:   "gardenlinux",
		RepoURL:    "https://github.com/gardenlinux/gardenlinux",
		RepoBranch: "main",

		QueryURL:          "https://gardenlinux-glrd.s3.eu-central-1.amazonaws.com",
		ContainerRegistry: "ghcr.io/gardenlinux/gardenlinux",

		PlatformExtensions: map[string]string{
			"ali":                "qcow2",
			"aws":                "raw",
			"azure":              "vhd",
			"gcp":                "gcpimage.tar.gz",
			"gdch":               "gcpimage.tar.gz",
			"kvm":                "raw",
			"metal":              "raw",
			"openstack":          "qcow2",
			"openstackbaremetal": "qcow2",
			"vmware":             "ova",
		},
	}
}

func (c *Config) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}

	return nil
}
