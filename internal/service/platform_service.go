package service

import (
	"Beacon/internal/api/dto"
	"Beacon/internal/model"
	"Beacon/internal/pkg/platform"
	"context"
	log "log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

const connectionTestTimeout = 15 * time.Second

// PlatformService 管理端平台连接检测
type PlatformService interface {
	TestConnections(ctx context.Context, userID uint64) []*dto.ConnectionTestDTO
}

type platformServiceImpl struct {
	fetchers map[model.Platform]platform.Fetcher
}

func NewPlatformService(fetchers map[model.Platform]platform.Fetcher) PlatformService {
	return &platformServiceImpl{fetchers: fetchers}
}

// TestConnections 并发检测各平台，结果按固定平台顺序返回；userID 为 0 时检测全局账号
func (s *platformServiceImpl) TestConnections(ctx context.Context, userID uint64) []*dto.ConnectionTestDTO {
	ctx, cancel := context.WithTimeout(ctx, connectionTestTimeout)
	defer cancel()

	targets := make([]model.Platform, 0, len(s.fetchers))
	for _, p := range model.AllPlatforms {
		if _, ok := s.fetchers[p]; ok {
			targets = append(targets, p)
		}
	}

	results := make([]*dto.ConnectionTestDTO, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range targets {
		g.Go(func() error {
			res := &dto.ConnectionTestDTO{Platform: p.String(), Connected: true, Message: "ok"}
			if err := s.fetchers[p].TestConnection(gctx, userID); err != nil {
				res.Connected = false
				res.Message = err.Error()
				log.InfoContext(ctx, "platform connection test failed",
					"platform", p.String(), "user_id", userID, "kind", string(platform.KindOf(err)), "err", err)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}
