package workflow

import (
	"errors"
	"testing"
	"time"

	pkgerrors "thesis-track/backend/pkg/errors"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("解析时间失败: %v", err)
	}
	return v
}

func TestDeriveFromDefense_Example(t *testing.T) {
	defense := mustParse(t, "2025-06-20T10:00:00Z")
	at := mustParse(t, "2025-05-01T00:00:00Z")
	desc := "第一批答辩"

	batch, err := DeriveFromDefense(DefenseInput{
		Title:       "春季答辩",
		Description: &desc,
		DefenseDate: defense,
		IsActive:    true,
		IsGlobal:    true,
	}, at)
	if err != nil {
		t.Fatalf("DeriveFromDefense 应成功: %v", err)
	}

	if want := mustParse(t, "2025-06-13T10:00:00Z"); !batch.Submission.DeadlineDate.Equal(want) {
		t.Errorf("提交截止期望 %v，实际 %v", want, batch.Submission.DeadlineDate)
	}
	if want := mustParse(t, "2025-06-18T10:00:00Z"); !batch.Review.DeadlineDate.Equal(want) {
		t.Errorf("评审截止期望 %v，实际 %v", want, batch.Review.DeadlineDate)
	}
	if !batch.Defense.DeadlineDate.Equal(defense) {
		t.Errorf("答辩日期期望 %v，实际 %v", defense, batch.Defense.DeadlineDate)
	}

	if batch.Submission.Title != "春季答辩 (submission)" {
		t.Errorf("标题应带类型后缀，实际 %s", batch.Submission.Title)
	}
	for _, d := range batch.All() {
		if d.Description == nil || *d.Description != desc {
			t.Errorf("%s 应共享描述", d.DeadlineType)
		}
		if !d.IsActive || !d.IsGlobal {
			t.Errorf("%s 应共享 is_active / is_global", d.DeadlineType)
		}
	}

	all := batch.All()
	if !(all[0].DeadlineDate.Before(all[1].DeadlineDate) && all[1].DeadlineDate.Before(all[2].DeadlineDate)) {
		t.Error("应满足 submission < review < defense")
	}
}

func TestDeriveFromDefense_Deterministic(t *testing.T) {
	at := mustParse(t, "2025-01-01T00:00:00Z")
	in := DefenseInput{Title: "答辩", DefenseDate: mustParse(t, "2025-03-30T08:30:00+08:00")}

	first, err := DeriveFromDefense(in, at)
	if err != nil {
		t.Fatalf("第一次推导失败: %v", err)
	}
	second, err := DeriveFromDefense(in, at.Add(time.Hour))
	if err != nil {
		t.Fatalf("第二次推导失败: %v", err)
	}

	for i := range first.All() {
		a, b := first.All()[i], second.All()[i]
		if !a.DeadlineDate.Equal(b.DeadlineDate) {
			t.Errorf("%s 两次推导结果不一致: %v / %v", a.DeadlineType, a.DeadlineDate, b.DeadlineDate)
		}
	}
	if first.Defense.DeadlineDate.Location() != time.UTC {
		t.Error("推导结果应统一为 UTC")
	}
	if got := first.Defense.DeadlineDate.Sub(first.Submission.DeadlineDate); got != 7*24*time.Hour {
		t.Errorf("提交截止应早 7 天，实际差 %v", got)
	}
	if got := first.Defense.DeadlineDate.Sub(first.Review.DeadlineDate); got != 2*24*time.Hour {
		t.Errorf("评审截止应早 2 天，实际差 %v", got)
	}
}

func TestDeriveFromDefense_InsufficientLead(t *testing.T) {
	at := mustParse(t, "2025-06-01T10:00:00Z")

	_, err := DeriveFromDefense(DefenseInput{Title: "答辩", DefenseDate: at.AddDate(0, 0, 3)}, at)
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("3 天后答辩期望 ErrValidation，实际: %v", err)
	}

	_, err = DeriveFromDefense(DefenseInput{Title: "答辩", DefenseDate: at.AddDate(0, 0, 7).Add(-time.Second)}, at)
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("差一秒满 7 天期望 ErrValidation，实际: %v", err)
	}

	if _, err := DeriveFromDefense(DefenseInput{Title: "答辩", DefenseDate: at.AddDate(0, 0, 7)}, at); err != nil {
		t.Errorf("恰好 7 天应允许: %v", err)
	}
}

func TestDeriveFromDefense_EmptyTitle(t *testing.T) {
	at := mustParse(t, "2025-06-01T10:00:00Z")
	_, err := DeriveFromDefense(DefenseInput{Title: " ", DefenseDate: at.AddDate(0, 1, 0)}, at)
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("空标题期望 ErrValidation，实际: %v", err)
	}
}

func TestDaysRemaining(t *testing.T) {
	at := mustParse(t, "2025-06-01T23:00:00Z")

	if got := DaysRemaining(mustParse(t, "2025-06-02T01:00:00Z"), at); got != 1 {
		t.Errorf("跨天期望 1，实际 %d", got)
	}
	if got := DaysRemaining(mustParse(t, "2025-06-01T23:30:00Z"), at); got != 0 {
		t.Errorf("同一天期望 0，实际 %d", got)
	}
	if got := DaysRemaining(mustParse(t, "2025-05-29T12:00:00Z"), at); got != -3 {
		t.Errorf("已过期期望 -3，实际 %d", got)
	}
	if IsUpcoming(mustParse(t, "2025-05-29T12:00:00Z"), at) {
		t.Error("已过期的截止日期不应视为即将到来")
	}
}
