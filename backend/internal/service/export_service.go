package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"thesis-track/backend/internal/model"
	"thesis-track/backend/internal/repository"
	"thesis-track/backend/internal/workflow"
	pkgerrors "thesis-track/backend/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportForbidden    = pkgerrors.New(pkgerrors.ErrForbidden, "无权导出论文数据")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出论文列表与全部有效截止日期为 Excel (.xlsx)
//   - 截止日期另可导出为 iCalendar (.ics)，所有角色可用
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - 指导老师仅导出本人指导的论文，管理员导出全部
type ExportService interface {
	// ExportTheses 导出论文进度表，status 为空表示全部状态
	ExportTheses(ctx context.Context, actor Actor, status string) (*bytes.Buffer, string, error)
	// ExportDeadlineCalendar 导出有效截止日期为 .ics
	ExportDeadlineCalendar(ctx context.Context, actor Actor) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger, now: time.Now}
}

// ═══════════════════════════════════════════════════════════
// ExportTheses
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "论文进度"：标题 / 学生 / 指导老师 / 状态 / 提交时间 / 通过时间 / 答辩日期
//   - Sheet "截止日期"：有效截止日期，按日期升序
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportTheses(ctx context.Context, actor Actor, status string) (*bytes.Buffer, string, error) {
	filter := repository.ThesisFilter{Status: workflow.ThesisStatus(status)}
	switch {
	case actor.IsAdmin():
	case actor.IsSupervisor():
		filter.SupervisorID = actor.UserID
	default:
		return nil, "", ErrExportForbidden
	}

	// 1. 查询论文
	theses, _, err := s.repo.Thesis.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询论文失败", zap.Error(err))
		return nil, "", err
	}

	// 2. 查询有效截止日期
	deadlines, _, err := s.repo.Deadline.List(ctx, repository.DeadlineFilter{ActiveOnly: true})
	if err != nil {
		s.logger.Error("查询截止日期失败", zap.Error(err))
		return nil, "", err
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	thesisSheet := "论文进度"
	idx, _ := f.NewSheet(thesisSheet)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	writeHeader(f, thesisSheet, headerStyle,
		[]string{"标题", "学生", "指导老师", "状态", "提交时间", "通过时间", "答辩日期"},
		[]float64{40, 14, 14, 16, 20, 20, 20})

	for i := range theses {
		t := &theses[i]
		row := i + 2
		f.SetCellValue(thesisSheet, cell("A", row), t.Title)
		f.SetCellValue(thesisSheet, cell("B", row), userName(t.Student, t.StudentID))
		supervisor := "-"
		if t.HasSupervisor() {
			supervisor = userName(t.Supervisor, *t.SupervisorID)
		}
		f.SetCellValue(thesisSheet, cell("C", row), supervisor)
		f.SetCellValue(thesisSheet, cell("D", row), statusLabel(t.Status))
		f.SetCellValue(thesisSheet, cell("E", row), formatDateTime(t.SubmittedAt))
		f.SetCellValue(thesisSheet, cell("F", row), formatDateTime(t.ApprovedAt))
		f.SetCellValue(thesisSheet, cell("G", row), formatDateTime(t.DefenseDate))
	}

	deadlineSheet := "截止日期"
	if _, err := f.NewSheet(deadlineSheet); err != nil {
		s.logger.Error("创建 Sheet 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	writeHeader(f, deadlineSheet, headerStyle,
		[]string{"标题", "类型", "截止时间", "剩余天数", "地点"},
		[]float64{40, 12, 20, 10, 20})

	at := s.now()
	for i := range deadlines {
		d := &deadlines[i]
		row := i + 2
		f.SetCellValue(deadlineSheet, cell("A", row), d.Title)
		f.SetCellValue(deadlineSheet, cell("B", row), string(d.DeadlineType))
		f.SetCellValue(deadlineSheet, cell("C", row), formatDateTime(&d.DeadlineDate))
		f.SetCellValue(deadlineSheet, cell("D", row), workflow.DaysRemaining(d.DeadlineDate, at))
		location := "-"
		if d.Location != nil {
			location = *d.Location
		}
		f.SetCellValue(deadlineSheet, cell("E", row), location)
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("论文进度_%s.xlsx", at.UTC().Format("20060102"))
	return buf, filename, nil
}

// ── 辅助函数 ──

var statusLabels = map[workflow.ThesisStatus]string{
	workflow.StatusDraft:         "草稿",
	workflow.StatusSubmitted:     "已提交",
	workflow.StatusUnderReview:   "评审中",
	workflow.StatusNeedsRevision: "待修改",
	workflow.StatusApproved:      "已通过",
	workflow.StatusDeclined:      "已驳回",
}

func statusLabel(s workflow.ThesisStatus) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

func writeHeader(f *excelize.File, sheet string, style int, titles []string, widths []float64) {
	for i, title := range titles {
		col := colName(i)
		f.SetColWidth(sheet, col, col, widths[i])
		f.SetCellValue(sheet, cell(col, 1), title)
	}
	f.SetCellStyle(sheet, "A1", cell(colName(len(titles)-1), 1), style)
}

func userName(u *model.User, fallback string) string {
	if u != nil && u.Name != "" {
		return u.Name
	}
	return fallback
}

func formatDateTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
