package models

import (
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
)

// 只读视图：先按条件取出主记录，再批量加载关联的终端、社区、联络人与调度员后拼装。

// AlertRow 警报列表行
type AlertRow struct {
	AlertID        string      `json:"alertId"`
	TerminalID     string      `json:"terminalId"`
	AlertType      *AlertType  `json:"alertType"`
	Status         AlertStatus `json:"status"`
	LastSignalTime time.Time   `json:"lastSignalTime"`
	TerminalName   string      `json:"terminalName"`
	Address        *string     `json:"address"`
}

// AlertDetail 单个警报详情
type AlertDetail struct {
	AlertID      string      `json:"alertID"`
	TerminalID   string      `json:"terminalID"`
	TerminalName string      `json:"terminalName"`
	AlertType    *AlertType  `json:"alertType"`
	Status       AlertStatus `json:"status"`
	TimeSent     time.Time   `json:"timeSent"`
	Address      *string     `json:"address"`
}

// MapAlertRow 地图视图：每个终端最新的一条警报
type MapAlertRow struct {
	AlertID            string         `json:"alertId"`
	TerminalID         string         `json:"terminalId"`
	TerminalName       string         `json:"terminalName"`
	AlertType          *AlertType     `json:"alertType"`
	TerminalStatus     TerminalStatus `json:"terminalStatus"`
	TimeSent           time.Time      `json:"timeSent"`
	FocalFirstName     *string        `json:"focalFirstName"`
	FocalLastName      *string        `json:"focalLastName"`
	FocalAddress       *string        `json:"focalAddress"`
	FocalContactNumber *string        `json:"focalContactNumber"`
}

// OccupiedTerminalRow 已分配联络人的终端及其最新警报（可能没有）
type OccupiedTerminalRow struct {
	TerminalID         string         `json:"terminalId"`
	TerminalName       string         `json:"terminalName"`
	TerminalStatus     TerminalStatus `json:"terminalStatus"`
	AlertID            *string        `json:"alertId"`
	AlertType          *AlertType     `json:"alertType"`
	TimeSent           time.Time      `json:"timeSent"`
	AlertStatus        *AlertStatus   `json:"alertStatus"`
	FocalPersonID      string         `json:"focalPersonId"`
	FocalFirstName     string         `json:"focalFirstName"`
	FocalLastName      string         `json:"focalLastName"`
	FocalAddress       string         `json:"focalAddress"`
	FocalContactNumber string         `json:"focalContactNumber"`
}

// RescueFormView 救援单详情
type RescueFormView struct {
	FormID              string       `json:"formID"`
	AlertID             string       `json:"alertID"`
	TerminalName        *string      `json:"terminalName"`
	Status              RescueStatus `json:"status"`
	FocalUnreachable    bool         `json:"focalUnreachable"`
	WaterLevel          *string      `json:"waterLevel"`
	UrgencyOfEvacuation *string      `json:"urgencyOfEvacuation"`
	HazardPresent       *string      `json:"hazardPresent"`
	Accessibility       *string      `json:"accessibility"`
	ResourceNeeds       *string      `json:"resourceNeeds"`
	OtherInformation    *string      `json:"otherInformation"`
}

// RescueAggregateRow 救援单汇总表行
type RescueAggregateRow struct {
	EmergencyID      string     `json:"emergencyId"`
	TerminalID       *string    `json:"terminalId"`
	FocalFirstName   *string    `json:"focalFirstName"`
	FocalLastName    *string    `json:"focalLastName"`
	DateTimeOccurred *time.Time `json:"dateTimeOccurred"`
	AlertType        *AlertType `json:"alertType"`
	HouseAddress     *string    `json:"houseAddress"`
	DispatchedName   *string    `json:"dispatchedName"`
}

// ReportRow 待完成/已完成报告行，警报类型取自救援单保存的 originalAlertType
type ReportRow struct {
	AlertID        string       `json:"alertId"`
	TerminalName   *string      `json:"terminalName"`
	AlertType      *AlertType   `json:"alertType"`
	DispatcherName *string      `json:"dispatcherName"`
	RescueStatus   RescueStatus `json:"rescueStatus"`
	CreatedAt      time.Time    `json:"createdAt"`
	CompletedAt    *time.Time   `json:"completedAt,omitempty"`
	Address        *string      `json:"address"`
}

// AggregatedReport 完整救援报告（救援单 + 完成报告）
type AggregatedReport struct {
	NeighborhoodID           *string    `json:"neighborhoodId"`
	FocalPersonName          *string    `json:"focalPersonName"`
	FocalPersonAddress       *string    `json:"focalPersonAddress"`
	FocalPersonContactNumber *string    `json:"focalPersonContactNumber"`
	EmergencyID              string     `json:"emergencyId"`
	WaterLevel               *string    `json:"waterLevel"`
	UrgencyOfEvacuation      *string    `json:"urgencyOfEvacuation"`
	HazardPresent            *string    `json:"hazardPresent"`
	Accessibility            *string    `json:"accessibility"`
	ResourceNeeds            *string    `json:"resourceNeeds"`
	OtherInformation         *string    `json:"otherInformation"`
	TimeOfRescue             *time.Time `json:"timeOfRescue"`
	AlertType                *AlertType `json:"alertType"`
	RescueCompleted          bool       `json:"rescueCompleted"`
	RescueCompletionTime     *string    `json:"rescueCompletionTime"`
	NoOfPersonnel            *int       `json:"noOfPersonnel"`
	ResourcesUsed            *string    `json:"resourcesUsed"`
	ActionsTaken             *string    `json:"actionsTaken"`
}

// PostRescueAggregateRow 完成报告汇总表行
type PostRescueAggregateRow struct {
	EmergencyID      *string    `json:"emergencyId"`
	TerminalID       *string    `json:"terminalId"`
	FocalFirstName   *string    `json:"focalFirstName"`
	FocalLastName    *string    `json:"focalLastName"`
	DateTimeOccurred *time.Time `json:"dateTimeOccurred"`
	AlertType        *AlertType `json:"alertType"`
	HouseAddress     *string    `json:"houseAddress"`
	DispatchedName   *string    `json:"dispatchedName"`
	CompletionDate   *time.Time `json:"completionDate"`
}

// FormatElapsed 把时长格式化为 HH:MM:SS，负值按 0 处理
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// directory 批量加载的关联数据
type directory struct {
	terminals      map[string]*Terminal
	hoodByTerminal map[string]*Neighborhood
	hoodByFocal    map[string]*Neighborhood
	focal          map[string]*FocalPerson
	dispatchers    map[string]*Dispatcher
}

func loadDirectory(db *gorm.DB, terminalIDs, focalIDs, dispatcherIDs []string) (*directory, error) {
	d := &directory{
		terminals:      map[string]*Terminal{},
		hoodByTerminal: map[string]*Neighborhood{},
		hoodByFocal:    map[string]*Neighborhood{},
		focal:          map[string]*FocalPerson{},
		dispatchers:    map[string]*Dispatcher{},
	}
	terminalIDs, focalIDs, dispatcherIDs = distinct(terminalIDs), distinct(focalIDs), distinct(dispatcherIDs)

	if len(terminalIDs) > 0 {
		var terminals []Terminal
		if err := db.Where("id IN ?", terminalIDs).Find(&terminals).Error; err != nil {
			return nil, err
		}
		for i := range terminals {
			d.terminals[terminals[i].ID] = &terminals[i]
		}
	}

	if len(terminalIDs) > 0 || len(focalIDs) > 0 {
		var hoods []Neighborhood
		q := db.Model(&Neighborhood{})
		switch {
		case len(terminalIDs) > 0 && len(focalIDs) > 0:
			q = q.Where("terminal_id IN ? OR focal_person_id IN ?", terminalIDs, focalIDs)
		case len(terminalIDs) > 0:
			q = q.Where("terminal_id IN ?", terminalIDs)
		default:
			q = q.Where("focal_person_id IN ?", focalIDs)
		}
		if err := q.Order("id").Find(&hoods).Error; err != nil {
			return nil, err
		}
		for i := range hoods {
			n := &hoods[i]
			if n.TerminalID != nil {
				if _, ok := d.hoodByTerminal[*n.TerminalID]; !ok {
					d.hoodByTerminal[*n.TerminalID] = n
				}
			}
			if n.FocalPersonID != nil {
				if _, ok := d.hoodByFocal[*n.FocalPersonID]; !ok {
					d.hoodByFocal[*n.FocalPersonID] = n
				}
				focalIDs = append(focalIDs, *n.FocalPersonID)
			}
		}
	}

	if focalIDs = distinct(focalIDs); len(focalIDs) > 0 {
		var people []FocalPerson
		if err := db.Where("id IN ?", focalIDs).Find(&people).Error; err != nil {
			return nil, err
		}
		for i := range people {
			d.focal[people[i].ID] = &people[i]
		}
	}

	if len(dispatcherIDs) > 0 {
		var dispatchers []Dispatcher
		if err := db.Where("id IN ?", dispatcherIDs).Find(&dispatchers).Error; err != nil {
			return nil, err
		}
		for i := range dispatchers {
			d.dispatchers[dispatchers[i].ID] = &dispatchers[i]
		}
	}
	return d, nil
}

func (d *directory) terminalName(id string) *string {
	if t, ok := d.terminals[id]; ok {
		return &t.Name
	}
	return nil
}

func (d *directory) focalForTerminal(terminalID string) *FocalPerson {
	n, ok := d.hoodByTerminal[terminalID]
	if !ok || n.FocalPersonID == nil {
		return nil
	}
	return d.focal[*n.FocalPersonID]
}

func (d *directory) dispatcherName(id string) *string {
	if x, ok := d.dispatchers[id]; ok {
		return &x.Name
	}
	return nil
}

func (d *directory) addressForTerminal(terminalID string) *string {
	if fp := d.focalForTerminal(terminalID); fp != nil {
		return &fp.Address
	}
	return nil
}

func distinct(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ListAlertRows 警报列表，status 为空时返回全部
func ListAlertRows(db *gorm.DB, status AlertStatus) ([]AlertRow, error) {
	alerts, err := ListAlerts(db, status)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(alerts))
	for _, a := range alerts {
		ids = append(ids, a.TerminalID)
	}
	dir, err := loadDirectory(db, ids, nil, nil)
	if err != nil {
		return nil, err
	}

	rows := make([]AlertRow, 0, len(alerts))
	for _, a := range alerts {
		row := AlertRow{
			AlertID:        a.ID,
			TerminalID:     a.TerminalID,
			AlertType:      a.AlertType,
			Status:         a.Status,
			LastSignalTime: a.DateTimeSent,
			Address:        dir.addressForTerminal(a.TerminalID),
		}
		if t, ok := dir.terminals[a.TerminalID]; ok {
			row.TerminalName = t.Name
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// GetAlertDetail 单个警报详情，不存在时返回 gorm.ErrRecordNotFound
func GetAlertDetail(db *gorm.DB, id string) (*AlertDetail, error) {
	alert, err := GetAlert(db, id)
	if err != nil {
		return nil, err
	}
	dir, err := loadDirectory(db, []string{alert.TerminalID}, nil, nil)
	if err != nil {
		return nil, err
	}
	detail := &AlertDetail{
		AlertID:    alert.ID,
		TerminalID: alert.TerminalID,
		AlertType:  alert.AlertType,
		Status:     alert.Status,
		TimeSent:   alert.DateTimeSent,
		Address:    dir.addressForTerminal(alert.TerminalID),
	}
	if t, ok := dir.terminals[alert.TerminalID]; ok {
		detail.TerminalName = t.Name
	}
	return detail, nil
}

// latestAlertPerTerminal 每个终端最新的一条警报，按时间倒序
func latestAlertPerTerminal(db *gorm.DB, terminalIDs []string) ([]Alert, error) {
	var alerts []Alert
	q := db.Model(&Alert{})
	if terminalIDs != nil {
		if len(terminalIDs) == 0 {
			return nil, nil
		}
		q = q.Where("terminal_id IN ?", terminalIDs)
	}
	if err := q.Order("date_time_sent DESC").Order("id DESC").Find(&alerts).Error; err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	latest := alerts[:0]
	for _, a := range alerts {
		if _, ok := seen[a.TerminalID]; ok {
			continue
		}
		seen[a.TerminalID] = struct{}{}
		latest = append(latest, a)
	}
	return latest, nil
}

// LatestMapAlerts 地图视图：每个终端最新的一条警报
func LatestMapAlerts(db *gorm.DB) ([]MapAlertRow, error) {
	alerts, err := latestAlertPerTerminal(db, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(alerts))
	for _, a := range alerts {
		ids = append(ids, a.TerminalID)
	}
	dir, err := loadDirectory(db, ids, nil, nil)
	if err != nil {
		return nil, err
	}

	rows := make([]MapAlertRow, 0, len(alerts))
	for _, a := range alerts {
		row := MapAlertRow{
			AlertID:    a.ID,
			TerminalID: a.TerminalID,
			AlertType:  a.AlertType,
			TimeSent:   a.DateTimeSent,
		}
		if t, ok := dir.terminals[a.TerminalID]; ok {
			row.TerminalName = t.Name
			row.TerminalStatus = t.Status
		}
		if fp := dir.focalForTerminal(a.TerminalID); fp != nil {
			row.FocalFirstName = &fp.FirstName
			row.FocalLastName = &fp.LastName
			row.FocalAddress = &fp.Address
			row.FocalContactNumber = &fp.ContactNumber
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// OccupiedTerminals 已分配联络人的终端，附带最新警报；没有警报时 timeSent 取终端创建时间
func OccupiedTerminals(db *gorm.DB) ([]OccupiedTerminalRow, error) {
	var hoods []Neighborhood
	err := db.Where("focal_person_id IS NOT NULL AND terminal_id IS NOT NULL").Order("id").Find(&hoods).Error
	if err != nil {
		return nil, err
	}
	terminalIDs := make([]string, 0, len(hoods))
	for _, n := range hoods {
		terminalIDs = append(terminalIDs, *n.TerminalID)
	}
	terminalIDs = distinct(terminalIDs)

	dir, err := loadDirectory(db, terminalIDs, nil, nil)
	if err != nil {
		return nil, err
	}
	latest, err := latestAlertPerTerminal(db, terminalIDs)
	if err != nil {
		return nil, err
	}
	byTerminal := make(map[string]Alert, len(latest))
	for _, a := range latest {
		byTerminal[a.TerminalID] = a
	}

	rows := make([]OccupiedTerminalRow, 0, len(terminalIDs))
	for _, id := range terminalIDs {
		t, ok := dir.terminals[id]
		if !ok {
			continue
		}
		fp := dir.focalForTerminal(id)
		if fp == nil {
			continue
		}
		row := OccupiedTerminalRow{
			TerminalID:         t.ID,
			TerminalName:       t.Name,
			TerminalStatus:     t.Status,
			TimeSent:           t.DateCreated,
			FocalPersonID:      fp.ID,
			FocalFirstName:     fp.FirstName,
			FocalLastName:      fp.LastName,
			FocalAddress:       fp.Address,
			FocalContactNumber: fp.ContactNumber,
		}
		if a, ok := byTerminal[id]; ok {
			alertID, status := a.ID, a.Status
			row.AlertID = &alertID
			row.AlertType = a.AlertType
			row.AlertStatus = &status
			row.TimeSent = a.DateTimeSent
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].TimeSent.After(rows[j].TimeSent) })
	return rows, nil
}

func rescueFormView(form *RescueForm, dir *directory, alerts map[string]Alert) RescueFormView {
	view := RescueFormView{
		FormID:              form.ID,
		AlertID:             form.EmergencyID,
		Status:              form.Status,
		FocalUnreachable:    form.FocalUnreachable,
		WaterLevel:          form.WaterLevel,
		UrgencyOfEvacuation: form.UrgencyOfEvacuation,
		HazardPresent:       form.HazardPresent,
		Accessibility:       form.Accessibility,
		ResourceNeeds:       form.ResourceNeeds,
		OtherInformation:    form.OtherInformation,
	}
	if a, ok := alerts[form.EmergencyID]; ok {
		view.TerminalName = dir.terminalName(a.TerminalID)
	}
	return view
}

func alertsByID(db *gorm.DB, ids []string) (map[string]Alert, error) {
	out := map[string]Alert{}
	if ids = distinct(ids); len(ids) == 0 {
		return out, nil
	}
	var alerts []Alert
	if err := db.Where("id IN ?", ids).Find(&alerts).Error; err != nil {
		return nil, err
	}
	for _, a := range alerts {
		out[a.ID] = a
	}
	return out, nil
}

// GetRescueFormView 救援单详情，不存在时返回 gorm.ErrRecordNotFound
func GetRescueFormView(db *gorm.DB, formID string) (*RescueFormView, error) {
	form, err := GetRescueForm(db, formID)
	if err != nil {
		return nil, err
	}
	alerts, err := alertsByID(db, []string{form.EmergencyID})
	if err != nil {
		return nil, err
	}
	var terminalIDs []string
	for _, a := range alerts {
		terminalIDs = append(terminalIDs, a.TerminalID)
	}
	dir, err := loadDirectory(db, terminalIDs, nil, nil)
	if err != nil {
		return nil, err
	}
	view := rescueFormView(form, dir, alerts)
	return &view, nil
}

// ListRescueFormViews 全部救援单，编号倒序
func ListRescueFormViews(db *gorm.DB) ([]RescueFormView, error) {
	var forms []RescueForm
	if err := db.Order("LENGTH(id) DESC").Order("id DESC").Find(&forms).Error; err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(forms))
	for _, f := range forms {
		ids = append(ids, f.EmergencyID)
	}
	alerts, err := alertsByID(db, ids)
	if err != nil {
		return nil, err
	}
	terminalIDs := make([]string, 0, len(alerts))
	for _, a := range alerts {
		terminalIDs = append(terminalIDs, a.TerminalID)
	}
	dir, err := loadDirectory(db, terminalIDs, nil, nil)
	if err != nil {
		return nil, err
	}

	views := make([]RescueFormView, 0, len(forms))
	for i := range forms {
		views = append(views, rescueFormView(&forms[i], dir, alerts))
	}
	return views, nil
}

// RescueAggregates 救援单汇总表，alertID 非空时只返回该警报
func RescueAggregates(db *gorm.DB, alertID string) ([]RescueAggregateRow, error) {
	var forms []RescueForm
	q := db.Model(&RescueForm{})
	if alertID != "" {
		q = q.Where("emergency_id = ?", alertID)
	}
	if err := q.Order("LENGTH(id) DESC").Order("id DESC").Find(&forms).Error; err != nil {
		return nil, err
	}

	var alertIDs, focalIDs, dispatcherIDs []string
	for _, f := range forms {
		alertIDs = append(alertIDs, f.EmergencyID)
		dispatcherIDs = append(dispatcherIDs, f.DispatcherID)
		if f.FocalPersonID != nil {
			focalIDs = append(focalIDs, *f.FocalPersonID)
		}
	}
	alerts, err := alertsByID(db, alertIDs)
	if err != nil {
		return nil, err
	}
	dir, err := loadDirectory(db, nil, focalIDs, dispatcherIDs)
	if err != nil {
		return nil, err
	}

	rows := make([]RescueAggregateRow, 0, len(forms))
	for _, f := range forms {
		row := RescueAggregateRow{
			EmergencyID:    f.EmergencyID,
			AlertType:      f.OriginalAlertType,
			DispatchedName: dir.dispatcherName(f.DispatcherID),
		}
		if a, ok := alerts[f.EmergencyID]; ok {
			terminalID, sent := a.TerminalID, a.DateTimeSent
			row.TerminalID = &terminalID
			row.DateTimeOccurred = &sent
			if row.AlertType == nil {
				row.AlertType = a.AlertType
			}
		}
		if f.FocalPersonID != nil {
			if fp, ok := dir.focal[*f.FocalPersonID]; ok {
				row.FocalFirstName = &fp.FirstName
				row.FocalLastName = &fp.LastName
				row.HouseAddress = &fp.Address
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// reportRows 按救援单状态生成报告行；pendingOnly 时排除已有完成报告的警报
func reportRows(db *gorm.DB, status RescueStatus, pendingOnly bool) ([]ReportRow, error) {
	var forms []RescueForm
	if err := db.Where("status = ?", status).Find(&forms).Error; err != nil {
		return nil, err
	}
	var alertIDs, dispatcherIDs []string
	for _, f := range forms {
		alertIDs = append(alertIDs, f.EmergencyID)
		dispatcherIDs = append(dispatcherIDs, f.DispatcherID)
	}
	alerts, err := alertsByID(db, alertIDs)
	if err != nil {
		return nil, err
	}
	reports := map[string]PostRescueForm{}
	if ids := distinct(alertIDs); len(ids) > 0 {
		var prfs []PostRescueForm
		if err := db.Where("alert_id IN ?", ids).Find(&prfs).Error; err != nil {
			return nil, err
		}
		for _, p := range prfs {
			reports[p.AlertID] = p
		}
	}
	terminalIDs := make([]string, 0, len(alerts))
	for _, a := range alerts {
		terminalIDs = append(terminalIDs, a.TerminalID)
	}
	dir, err := loadDirectory(db, terminalIDs, nil, dispatcherIDs)
	if err != nil {
		return nil, err
	}

	rows := make([]ReportRow, 0, len(forms))
	for _, f := range forms {
		prf, hasReport := reports[f.EmergencyID]
		if pendingOnly && hasReport {
			continue
		}
		a, ok := alerts[f.EmergencyID]
		if !ok {
			continue
		}
		row := ReportRow{
			AlertID:        a.ID,
			TerminalName:   dir.terminalName(a.TerminalID),
			AlertType:      f.OriginalAlertType,
			DispatcherName: dir.dispatcherName(f.DispatcherID),
			RescueStatus:   f.Status,
			CreatedAt:      a.DateTimeSent,
			Address:        dir.addressForTerminal(a.TerminalID),
		}
		if hasReport && !pendingOnly {
			row.CompletedAt = prf.CompletedAt
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	return rows, nil
}

// PendingReports 已调度但尚未提交完成报告的救援
func PendingReports(db *gorm.DB) ([]ReportRow, error) {
	return reportRows(db, RescueDispatched, true)
}

// CompletedReports 已完成的救援
func CompletedReports(db *gorm.DB) ([]ReportRow, error) {
	return reportRows(db, RescueCompleted, false)
}

// AggregatedReports 完整救援报告，包含已调度与已完成的救援单
func AggregatedReports(db *gorm.DB, alertID string) ([]AggregatedReport, error) {
	var forms []RescueForm
	q := db.Where("status IN ?", []RescueStatus{RescueDispatched, RescueCompleted})
	if alertID != "" {
		q = q.Where("emergency_id = ?", alertID)
	}
	if err := q.Find(&forms).Error; err != nil {
		return nil, err
	}

	var alertIDs, focalIDs []string
	for _, f := range forms {
		alertIDs = append(alertIDs, f.EmergencyID)
		if f.FocalPersonID != nil {
			focalIDs = append(focalIDs, *f.FocalPersonID)
		}
	}
	alerts, err := alertsByID(db, alertIDs)
	if err != nil {
		return nil, err
	}
	reports := map[string]PostRescueForm{}
	if ids := distinct(alertIDs); len(ids) > 0 {
		var prfs []PostRescueForm
		if err := db.Where("alert_id IN ?", ids).Find(&prfs).Error; err != nil {
			return nil, err
		}
		for _, p := range prfs {
			reports[p.AlertID] = p
		}
	}
	dir, err := loadDirectory(db, nil, focalIDs, nil)
	if err != nil {
		return nil, err
	}

	// 按警报时间倒序
	sort.SliceStable(forms, func(i, j int) bool {
		return alerts[forms[i].EmergencyID].DateTimeSent.After(alerts[forms[j].EmergencyID].DateTimeSent)
	})

	out := make([]AggregatedReport, 0, len(forms))
	for _, f := range forms {
		r := AggregatedReport{
			EmergencyID:         f.EmergencyID,
			WaterLevel:          f.WaterLevel,
			UrgencyOfEvacuation: f.UrgencyOfEvacuation,
			HazardPresent:       f.HazardPresent,
			Accessibility:       f.Accessibility,
			ResourceNeeds:       f.ResourceNeeds,
			OtherInformation:    f.OtherInformation,
			AlertType:           f.OriginalAlertType,
		}
		if f.FocalPersonID != nil {
			if fp, ok := dir.focal[*f.FocalPersonID]; ok {
				r.FocalPersonName = strPtr(fp.FullName())
				r.FocalPersonAddress = strPtr(fp.Address)
				r.FocalPersonContactNumber = strPtr(fp.ContactNumber)
				if n, ok := dir.hoodByFocal[fp.ID]; ok {
					r.NeighborhoodID = &n.ID
				}
			}
		}
		if p, ok := reports[f.EmergencyID]; ok {
			created := p.CreatedAt
			r.TimeOfRescue = &created
			r.NoOfPersonnel = &p.NoOfPersonnelDeployed
			r.ResourcesUsed = strPtr(p.ResourcesUsed)
			r.ActionsTaken = strPtr(p.ActionTaken)
			if p.CompletedAt != nil {
				r.RescueCompleted = true
				elapsed := FormatElapsed(p.CompletedAt.Sub(created))
				r.RescueCompletionTime = &elapsed
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// AggregatedPostRescue 完成报告汇总表，按完成时间倒序
func AggregatedPostRescue(db *gorm.DB, alertID string) ([]PostRescueAggregateRow, error) {
	var prfs []PostRescueForm
	q := db.Model(&PostRescueForm{})
	if alertID != "" {
		q = q.Where("alert_id = ?", alertID)
	}
	if err := q.Order("completed_at DESC").Order("id DESC").Find(&prfs).Error; err != nil {
		return nil, err
	}

	alertIDs := make([]string, 0, len(prfs))
	for _, p := range prfs {
		alertIDs = append(alertIDs, p.AlertID)
	}
	alerts, err := alertsByID(db, alertIDs)
	if err != nil {
		return nil, err
	}
	forms := map[string]RescueForm{}
	var focalIDs, dispatcherIDs []string
	if ids := distinct(alertIDs); len(ids) > 0 {
		var list []RescueForm
		if err := db.Where("emergency_id IN ?", ids).Find(&list).Error; err != nil {
			return nil, err
		}
		for _, f := range list {
			forms[f.EmergencyID] = f
			dispatcherIDs = append(dispatcherIDs, f.DispatcherID)
			if f.FocalPersonID != nil {
				focalIDs = append(focalIDs, *f.FocalPersonID)
			}
		}
	}
	dir, err := loadDirectory(db, nil, focalIDs, dispatcherIDs)
	if err != nil {
		return nil, err
	}

	rows := make([]PostRescueAggregateRow, 0, len(prfs))
	for _, p := range prfs {
		row := PostRescueAggregateRow{CompletionDate: p.CompletedAt}
		if a, ok := alerts[p.AlertID]; ok {
			terminalID, sent := a.TerminalID, a.DateTimeSent
			row.TerminalID = &terminalID
			row.DateTimeOccurred = &sent
		}
		if f, ok := forms[p.AlertID]; ok {
			emergencyID := f.EmergencyID
			row.EmergencyID = &emergencyID
			row.AlertType = f.OriginalAlertType
			row.DispatchedName = dir.dispatcherName(f.DispatcherID)
			if f.FocalPersonID != nil {
				if fp, ok := dir.focal[*f.FocalPersonID]; ok {
					row.FocalFirstName = &fp.FirstName
					row.FocalLastName = &fp.LastName
					row.HouseAddress = &fp.Address
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
