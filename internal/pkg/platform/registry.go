package platform

import (
	"Beacon/internal/api/config"
	"Beacon/internal/model"
)

// NewFetchers 按配置构建全部平台的拉取器
func NewFetchers(cfg config.PlatformsConfig, accounts AccountProvider) map[model.Platform]Fetcher {
	fb := cfg.Facebook
	graphOpts := ClientOptions{
		BaseURL:   fb.BaseURL,
		Timeout:   fb.Timeout,
		RateLimit: fb.RateLimit,
		Burst:     fb.Burst,
		Retries:   fb.Retries,
	}
	tw := cfg.Twitter
	twitterOpts := ClientOptions{
		BaseURL:   tw.BaseURL,
		Timeout:   tw.Timeout,
		RateLimit: tw.RateLimit,
		Burst:     tw.Burst,
		Retries:   tw.Retries,
	}

	return map[model.Platform]Fetcher{
		model.PlatformFacebook:  NewFacebookFetcher(graphOpts, fb.Version, accounts),
		model.PlatformInstagram: NewInstagramFetcher(graphOpts, fb.Version, accounts),
		model.PlatformTwitter:   NewTwitterFetcher(twitterOpts, tw.BearerToken, accounts),
	}
}
