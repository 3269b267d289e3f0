package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
)

var (
	ErrParamInvalid        = errors.New("参数错误")
	ErrUserNotFound        = errors.New("用户不存在")
	ErrPostNotFound        = errors.New("帖子不存在")
	ErrMetricsNotFound     = errors.New("指标记录不存在")
	ErrMetricsExist        = errors.New("指标记录已存在")
	ErrPlatformUnsupported = errors.New("不支持的平台")
	ErrPlatformNotLive     = errors.New("帖子未在该平台发布")
	ErrRefreshRunning      = errors.New("刷新任务正在执行")
	ErrPartialDelete       = errors.New("部分指标记录删除失败")
	UnauthorizedError      = errors.New("权限不足")
	UnExpectedError        = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:        BadRequest,
	ErrUserNotFound:        NotFound,
	ErrPostNotFound:        NotFound,
	ErrMetricsNotFound:     NotFound,
	ErrMetricsExist:        Conflict,
	ErrPlatformUnsupported: BadRequest,
	ErrPlatformNotLive:     BadRequest,
	ErrRefreshRunning:      Conflict,
	ErrPartialDelete:       InternalServerError,
	UnauthorizedError:      Forbidden,
	UnExpectedError:        InternalServerError,
}
