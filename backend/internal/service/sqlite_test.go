package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"thesis-track/backend/internal/dto"
	"thesis-track/backend/internal/model"
	"thesis-track/backend/internal/repository"
	"thesis-track/backend/internal/workflow"
	pkgerrors "thesis-track/backend/pkg/errors"
)

// 基于 sqlite 内存库的服务测试：验证真实事务的回滚与串行化语义

func newSQLiteRepo(t *testing.T) (*repository.Repository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("打开 sqlite 失败: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取 sql.DB 失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("AutoMigrate 失败: %v", err)
	}
	if err := db.Exec(`CREATE UNIQUE INDEX uq_supervision_requests_live_thesis
		ON supervision_requests (thesis_id) WHERE status IN ('requested', 'approved')`).Error; err != nil {
		t.Fatalf("创建部分唯一索引失败: %v", err)
	}
	return repository.NewRepository(db), db
}

func sqliteSeed(t *testing.T, repo *repository.Repository) (student, prof Actor, thesis *model.Thesis) {
	t.Helper()
	ctx := context.Background()
	student = Actor{UserID: uuid.NewString(), Role: model.RoleStudent}
	prof = Actor{UserID: uuid.NewString(), Role: model.RoleProfessor}

	for _, a := range []Actor{student, prof} {
		u := &model.User{UserID: a.UserID, Name: a.Role, Email: a.UserID + "@example.edu", Role: a.Role, IsActive: true}
		if err := repo.User.Upsert(ctx, u); err != nil {
			t.Fatalf("创建用户失败: %v", err)
		}
	}
	thesis = &model.Thesis{Title: "事务一致性", Status: workflow.StatusSubmitted, StudentID: student.UserID}
	thesis.Version = 1
	if err := repo.Thesis.Create(ctx, thesis); err != nil {
		t.Fatalf("创建论文失败: %v", err)
	}
	return student, prof, thesis
}

// TestSQLite_ConcurrentCreateRequest 同一论文并发发起申请，恰好一条成功
func TestSQLite_ConcurrentCreateRequest(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	svc := NewSupervisionService(repo, zap.NewNop())
	student, prof, thesis := sqliteSeed(t, repo)

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateRequest(context.Background(), student,
				&dto.CreateSupervisionRequest{ThesisID: thesis.ThesisID, AssistantID: prof.UserID})
		}(i)
	}
	wg.Wait()

	success := 0
	for _, err := range errs {
		switch {
		case err == nil:
			success++
		case errors.Is(err, pkgerrors.ErrConflict):
		default:
			t.Errorf("意外错误: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("期望恰好 1 次成功，实际 %d", success)
	}

	live, err := repo.Request.CountLive(context.Background(), thesis.ThesisID)
	if err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	if live != 1 {
		t.Errorf("期望 1 条进行中申请，实际 %d", live)
	}
}

func TestSQLite_ApproveCommitsBothRows(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	svc := NewSupervisionService(repo, zap.NewNop())
	ctx := context.Background()
	student, prof, thesis := sqliteSeed(t, repo)

	req, err := svc.CreateRequest(ctx, student, &dto.CreateSupervisionRequest{ThesisID: thesis.ThesisID, AssistantID: prof.UserID})
	if err != nil {
		t.Fatalf("创建申请失败: %v", err)
	}
	resp, err := svc.Approve(ctx, prof, req.ID)
	if err != nil {
		t.Fatalf("审批失败: %v", err)
	}
	if resp.Thesis.SupervisorID == nil || *resp.Thesis.SupervisorID != prof.UserID {
		t.Fatal("论文指导老师应已写入")
	}

	approved, err := repo.Request.FindApproved(ctx, thesis.ThesisID)
	if err != nil || approved.RequestID != req.ID {
		t.Fatalf("应存在唯一已通过申请，实际: %v %v", approved, err)
	}

	// 再次审批同一申请
	if _, err := svc.Approve(ctx, prof, req.ID); !errors.Is(err, pkgerrors.ErrAlreadyTerminal) {
		t.Errorf("期望 ErrAlreadyTerminal，实际: %v", err)
	}
}

// TestSQLite_DefenseDeadlinesAllOrNothing 截止日期写入失败时论文答辩日期一并回滚
func TestSQLite_DefenseDeadlinesAllOrNothing(t *testing.T) {
	repo, db := newSQLiteRepo(t)
	ctx := context.Background()
	_, _, thesis := sqliteSeed(t, repo)
	admin := Actor{UserID: uuid.NewString(), Role: model.RoleAdmin}

	err := db.Callback().Create().Before("gorm:create").Register("test:fail_deadlines", func(tx *gorm.DB) {
		if tx.Statement.Table == "deadlines" {
			_ = tx.AddError(errors.New("磁盘已满"))
		}
	})
	if err != nil {
		t.Fatalf("注册回调失败: %v", err)
	}

	svc := &deadlineService{repo: repo, logger: zap.NewNop(), now: func() time.Time { return fixedNow }}
	req := defenseRequest(fixedNow.AddDate(0, 0, 14))
	req.ThesisID = &thesis.ThesisID

	if _, err := svc.CreateDefenseDeadlines(ctx, admin, req); err == nil {
		t.Fatal("期望写入失败")
	}

	reloaded, err := repo.Thesis.GetByID(ctx, thesis.ThesisID)
	if err != nil {
		t.Fatalf("查询论文失败: %v", err)
	}
	if reloaded.DefenseDate != nil {
		t.Errorf("答辩日期应回滚，实际: %v", reloaded.DefenseDate)
	}
	if reloaded.Version != thesis.Version {
		t.Errorf("version 应保持 %d，实际 %d", thesis.Version, reloaded.Version)
	}

	_, total, err := repo.Deadline.List(ctx, repository.DeadlineFilter{})
	if err != nil {
		t.Fatalf("查询截止日期失败: %v", err)
	}
	if total != 0 {
		t.Errorf("期望无截止日期记录，实际 %d", total)
	}
}

func TestSQLite_DefenseDeadlinesPersisted(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()
	_, _, thesis := sqliteSeed(t, repo)
	admin := Actor{UserID: uuid.NewString(), Role: model.RoleAdmin}

	svc := &deadlineService{repo: repo, logger: zap.NewNop(), now: func() time.Time { return fixedNow }}
	req := defenseRequest(time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC))
	req.ThesisID = &thesis.ThesisID

	resp, err := svc.CreateDefenseDeadlines(ctx, admin, req)
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}

	items, total, err := repo.Deadline.List(ctx, repository.DeadlineFilter{BatchID: resp.BatchID})
	if err != nil || total != 3 {
		t.Fatalf("期望同批次 3 条，实际 %d (%v)", total, err)
	}
	wantTypes := []workflow.DeadlineType{workflow.DeadlineSubmission, workflow.DeadlineReview, workflow.DeadlineDefense}
	for i, d := range items {
		if d.DeadlineType != wantTypes[i] {
			t.Errorf("第 %d 条期望 %s，实际 %s", i, wantTypes[i], d.DeadlineType)
		}
	}

	reloaded, _ := repo.Thesis.GetByID(ctx, thesis.ThesisID)
	if reloaded.DefenseDate == nil || !reloaded.DefenseDate.Equal(items[2].DeadlineDate) {
		t.Errorf("论文答辩日期应与答辩截止一致，实际: %v", reloaded.DefenseDate)
	}
}

// TestSQLite_InactiveBatchStaysInactive is_active=false 的批次整批按停用写入
func TestSQLite_InactiveBatchStaysInactive(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()
	admin := Actor{UserID: uuid.NewString(), Role: model.RoleAdmin}
	student := Actor{UserID: uuid.NewString(), Role: model.RoleStudent}

	svc := &deadlineService{repo: repo, logger: zap.NewNop(), now: func() time.Time { return fixedNow }}
	req := defenseRequest(fixedNow.AddDate(0, 0, 14))
	inactive := false
	req.IsActive = &inactive

	resp, err := svc.CreateDefenseDeadlines(ctx, admin, req)
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	for _, d := range []dto.DeadlineResponse{resp.Submission, resp.Review, resp.Defense} {
		if d.IsActive {
			t.Errorf("响应中 %s 应为停用", d.DeadlineType)
		}
	}

	items, total, err := repo.Deadline.List(ctx, repository.DeadlineFilter{BatchID: resp.BatchID})
	if err != nil || total != 3 {
		t.Fatalf("期望同批次 3 条，实际 %d (%v)", total, err)
	}
	for _, d := range items {
		if d.IsActive {
			t.Errorf("库中 %s 应为停用", d.DeadlineType)
		}
	}

	visible, _, err := svc.List(ctx, student, &dto.DeadlineListRequest{})
	if err != nil {
		t.Fatalf("学生查询失败: %v", err)
	}
	if len(visible) != 0 {
		t.Errorf("学生不应看到停用的截止日期，实际 %d 条", len(visible))
	}
}

// TestSQLite_ApproveRace 两条进行中申请并发审批，行锁与 supervisor_id 条件更新保证只有一方胜出
func TestSQLite_ApproveRace(t *testing.T) {
	repo, db := newSQLiteRepo(t)
	svc := NewSupervisionService(repo, zap.NewNop())
	ctx := context.Background()
	student, prof, thesis := sqliteSeed(t, repo)

	assistant := Actor{UserID: uuid.NewString(), Role: model.RoleGraduationAssistant}
	if err := repo.User.Upsert(ctx, &model.User{
		UserID: assistant.UserID, Name: "助理", Email: assistant.UserID + "@example.edu", Role: assistant.Role, IsActive: true,
	}); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	// 去掉部分唯一索引，直接构造两条 requested 申请
	if err := db.Exec(`DROP INDEX uq_supervision_requests_live_thesis`).Error; err != nil {
		t.Fatalf("删除索引失败: %v", err)
	}
	approvers := []Actor{prof, assistant}
	requestIDs := make([]string, len(approvers))
	for i, a := range approvers {
		r := &model.SupervisionRequest{
			ThesisID: thesis.ThesisID, StudentID: student.UserID, AssistantID: a.UserID, Status: workflow.RequestRequested,
		}
		r.SetActor(student.UserID)
		if err := repo.Request.Create(ctx, r); err != nil {
			t.Fatalf("创建申请失败: %v", err)
		}
		requestIDs[i] = r.RequestID
	}

	var wg sync.WaitGroup
	errs := make([]error, len(approvers))
	for i, a := range approvers {
		wg.Add(1)
		go func(i int, a Actor) {
			defer wg.Done()
			_, errs[i] = svc.Approve(context.Background(), a, requestIDs[i])
		}(i, a)
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		switch {
		case err == nil:
			if winner >= 0 {
				t.Fatal("两次审批都成功")
			}
			winner = i
		case errors.Is(err, pkgerrors.ErrConflict):
		default:
			t.Errorf("意外错误: %v", err)
		}
	}
	if winner < 0 {
		t.Fatal("期望恰好一方胜出")
	}

	reloaded, err := repo.Thesis.GetByID(ctx, thesis.ThesisID)
	if err != nil {
		t.Fatalf("查询论文失败: %v", err)
	}
	if !reloaded.IsSupervisedBy(approvers[winner].UserID) {
		t.Errorf("论文指导老师应为胜出方 %s", approvers[winner].UserID)
	}
	approved, err := repo.Request.FindApproved(ctx, thesis.ThesisID)
	if err != nil || approved.RequestID != requestIDs[winner] {
		t.Fatalf("已通过申请应为胜出方，实际: %v %v", approved, err)
	}

	loser, err := repo.Request.GetByID(ctx, requestIDs[1-winner])
	if err != nil {
		t.Fatalf("查询落败申请失败: %v", err)
	}
	if loser.Status != workflow.RequestRequested {
		t.Errorf("落败申请应保持 requested，实际 %s", loser.Status)
	}
}
