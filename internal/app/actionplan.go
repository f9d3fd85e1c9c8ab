package app

import (
	"slices"
	"strings"
	"time"

	"github.com/evanschultz/scorecard/internal/board"
	"github.com/evanschultz/scorecard/internal/domain"
)

// Workbook sheet names.
const (
	ActionSheetName    = "三力三平台行动表"
	ReferenceSheetName = "BSC数据参考"
	connectionLabel    = "连接关系"
	missingNodeText    = "N/A"
	forceSeparator     = "、"
)

// ActionHeaders and ReferenceHeaders are the header rows of the two sheets.
var (
	ActionHeaders    = []string{"序号", "客户群", "产品", "营收目标", "销售力", "产品力", "交付力", "人力（三平台）", "财务&资产（三平台）", "数字化&流程（三平台）"}
	ReferenceHeaders = []string{"维度", "卡片ID", "内容", "X坐标", "Y坐标", "形状", "填充色", "边框色"}
)

// PlatformKeywords decides which process and learning cards feed each platform column.
type PlatformKeywords struct {
	HR      []string
	Finance []string
	Digital []string
}

// DefaultPlatformKeywords returns the stock platform keyword lists.
func DefaultPlatformKeywords() PlatformKeywords {
	return PlatformKeywords{
		HR:      []string{"人力", "HR"},
		Finance: []string{"财务", "资金"},
		Digital: []string{"数字", "流程", "IT"},
	}
}

// withDefaults fills empty keyword lists from DefaultPlatformKeywords.
func (k PlatformKeywords) withDefaults() PlatformKeywords {
	def := DefaultPlatformKeywords()
	if len(k.HR) == 0 {
		k.HR = def.HR
	}
	if len(k.Finance) == 0 {
		k.Finance = def.Finance
	}
	if len(k.Digital) == 0 {
		k.Digital = def.Digital
	}
	return k
}

// ActionRow is one client × product row of the action sheet.
type ActionRow struct {
	Seq          int
	Client       string
	Product      string
	Revenue      float64
	SalesForce   string
	ProductForce string
	Delivery     string
	HR           string
	Finance      string
	Digital      string
}

// Values returns the row cells in header order.
func (r ActionRow) Values() []any {
	return []any{r.Seq, r.Client, r.Product, r.Revenue, r.SalesForce, r.ProductForce, r.Delivery, r.HR, r.Finance, r.Digital}
}

// ReferenceRow is one node or connection row of the reference sheet.
type ReferenceRow struct {
	Dimension  string
	ID         string
	Text       string
	X          float64
	Y          float64
	Shape      string
	Fill       string
	Border     string
	Connection bool
}

// Values returns the row cells in header order; connection rows leave the node columns blank.
func (r ReferenceRow) Values() []any {
	if r.Connection {
		return []any{r.Dimension, r.ID, r.Text, "", "", "", "", ""}
	}
	return []any{r.Dimension, r.ID, r.Text, r.X, r.Y, r.Shape, r.Fill, r.Border}
}

// ActionPlan is the content of the exported workbook.
type ActionPlan struct {
	Filename  string
	Rows      []ActionRow
	Reference []ReferenceRow
}

// ActionPlanFilename returns the workbook name dated in UTC.
func ActionPlanFilename(now time.Time) string {
	return ActionSheetName + "_" + now.UTC().Format(time.DateOnly) + ".xlsx"
}

// BuildActionPlan derives both sheets from a board state and the Step 3 matrix.
func BuildActionPlan(state board.State, step3 *domain.Step3Data, keywords PlatformKeywords, now time.Time) (ActionPlan, error) {
	if !step3.HasMatrix() {
		return ActionPlan{}, ErrMatrixRequired
	}
	keywords = keywords.withDefaults()
	matrix := *step3.Matrix

	forces := strings.Join(domain.LaneTexts(state.Lanes, domain.LaneCustomer), forceSeparator)
	platform := domain.LaneTexts(state.Lanes, domain.LaneProcess, domain.LaneLearning)
	hr := joinMatching(platform, keywords.HR)
	finance := joinMatching(platform, keywords.Finance)
	digital := joinMatching(platform, keywords.Digital)

	plan := ActionPlan{Filename: ActionPlanFilename(now)}
	for i, cell := range matrix.Cells() {
		plan.Rows = append(plan.Rows, ActionRow{
			Seq:          i + 1,
			Client:       matrix.ClientName(cell.ClientRef),
			Product:      matrix.ProductName(cell.ProductRef),
			Revenue:      cell.Value,
			SalesForce:   forces,
			ProductForce: forces,
			Delivery:     forces,
			HR:           hr,
			Finance:      finance,
			Digital:      digital,
		})
	}

	texts := map[string]string{}
	for _, lane := range state.Lanes {
		for _, node := range lane.Nodes {
			texts[node.ID] = node.Text
			plan.Reference = append(plan.Reference, ReferenceRow{
				Dimension: lane.Title,
				ID:        node.ID,
				Text:      node.Text,
				X:         node.X,
				Y:         node.Y,
				Shape:     string(node.Shape),
				Fill:      node.Fill,
				Border:    node.Border,
			})
		}
	}
	for _, conn := range state.Connections {
		plan.Reference = append(plan.Reference, ReferenceRow{
			Dimension:  connectionLabel,
			ID:         conn.ID,
			Text:       textOr(texts, conn.From) + " → " + textOr(texts, conn.To),
			Connection: true,
		})
	}
	return plan, nil
}

// joinMatching joins the texts containing any keyword.
func joinMatching(texts, keywords []string) string {
	matched := slices.DeleteFunc(slices.Clone(texts), func(text string) bool {
		return !slices.ContainsFunc(keywords, func(kw string) bool {
			return kw != "" && strings.Contains(text, kw)
		})
	})
	return strings.Join(matched, forceSeparator)
}

// textOr returns a node's text or the missing-node marker.
func textOr(texts map[string]string, id string) string {
	if text, ok := texts[id]; ok && text != "" {
		return text
	}
	return missingNodeText
}
