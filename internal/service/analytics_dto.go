package service

import (
	"Beacon/internal/api/dto"
	"Beacon/internal/model"
)

func ToRefreshResultDTO(r *RefreshResult) *dto.RefreshResultDTO {
	if r == nil {
		return nil
	}
	return &dto.RefreshResultDTO{
		PostID:  r.PostID,
		Updated: platformNames(r.Updated),
		Skipped: platformNames(r.Skipped),
		Failed:  platformNames(r.Failed),
	}
}

func ToBulkResultDTO(r *BulkResult) *dto.BulkRefreshResultDTO {
	if r == nil {
		return nil
	}
	res := &dto.BulkRefreshResultDTO{
		Total:     r.Total,
		Succeeded: r.Succeeded,
		Failed:    r.Failed,
		Cancelled: r.Cancelled,
		Results:   make([]*dto.RefreshResultDTO, 0, len(r.Results)),
	}
	for _, item := range r.Results {
		res.Results = append(res.Results, ToRefreshResultDTO(item))
	}
	return res
}

func ToDeleteReportDTO(r *DeleteReport) *dto.DeleteReportDTO {
	if r == nil {
		return nil
	}
	return &dto.DeleteReportDTO{
		PostID:  r.PostID,
		Deleted: nonNil(r.Deleted),
		Failed:  nonNil(r.Failed),
	}
}

func platformNames(list []model.Platform) []string {
	res := make([]string, 0, len(list))
	for _, p := range list {
		res = append(res, p.String())
	}
	return res
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
