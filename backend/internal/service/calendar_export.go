package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"thesis-track/backend/internal/model"
	"thesis-track/backend/internal/repository"
)

// ── iCalendar 导出 ──────────────────────────────────────────
//
// 职责：将有效截止日期输出为标准 iCalendar (RFC 5545) 文件，供日历客户端订阅。
//
//   - 每条截止日期对应一个 VEVENT，UID 取 deadline_id，重复导入不会产生重复事件
//   - 时间统一按 UTC 输出，由客户端换算本地时区
//   - 每个事件附带提前一天的提醒
//   - 学生只能看到全局截止日期，与列表接口一致
// ─────────────────────────────────────────────────────────────

const (
	calendarProductID = "-//thesis-track//deadlines//ZH"
	calendarName      = "论文截止日期"
	calendarUIDSuffix = "@thesis-track"
	calendarEventSpan = 30 * time.Minute
	calendarAlarm     = "-P1D"
)

// ExportDeadlineCalendar 导出截止日期日历
func (s *exportService) ExportDeadlineCalendar(ctx context.Context, actor Actor) (*bytes.Buffer, string, error) {
	filter := repository.DeadlineFilter{ActiveOnly: true}
	if actor.IsStudent() {
		filter.GlobalOnly = true
	}

	deadlines, _, err := s.repo.Deadline.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询截止日期失败", zap.Error(err))
		return nil, "", err
	}

	at := s.now().UTC()
	cal := buildDeadlineCalendar(deadlines, at)

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("截止日期_%s.ics", at.Format("20060102"))

	s.logger.Info("截止日期日历导出成功",
		zap.String("user_id", actor.UserID),
		zap.Int("events", len(deadlines)),
	)

	return buf, filename, nil
}

func buildDeadlineCalendar(deadlines []model.Deadline, stamp time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetXWRCalName(calendarName)

	for i := range deadlines {
		d := &deadlines[i]
		start := d.DeadlineDate.UTC()

		event := cal.AddEvent(d.DeadlineID + calendarUIDSuffix)
		event.SetDtStampTime(stamp)
		event.SetCreatedTime(d.CreatedAt.UTC())
		event.SetModifiedAt(d.UpdatedAt.UTC())
		event.SetStartAt(start)
		event.SetEndAt(start.Add(calendarEventSpan))
		event.SetSummary(d.Title)
		event.SetStatus(ics.ObjectStatusConfirmed)
		event.AddProperty(ics.ComponentPropertyCategories, string(d.DeadlineType))
		if d.Description != nil {
			event.SetDescription(*d.Description)
		}
		if d.Location != nil {
			event.SetLocation(*d.Location)
		}

		alarm := event.AddAlarm()
		alarm.SetAction(ics.ActionDisplay)
		alarm.SetTrigger(calendarAlarm)
		alarm.AddProperty(ics.ComponentPropertyDescription, d.Title)
	}

	return cal
}
