package dispatch

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"ResQWave/internal/models"
	"ResQWave/pkg/cache"
	"ResQWave/pkg/errors"
	"ResQWave/pkg/util"
	"ResQWave/pkg/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type published struct {
	group   string
	event   string
	payload interface{}
}

type recorder struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (r *recorder) Publish(group, event string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{group: group, event: event, payload: payload})
	return r.err
}

func (r *recorder) named(event string) []published {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []published
	for _, e := range r.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func groupsOf(events []published) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.group)
	}
	return out
}

var (
	dispatcher = Actor{ID: "D1", Role: "dispatcher", Name: "Dana"}
	admin      = Actor{ID: "A1", Role: "admin"}
	fullForm   = RescueFormInput{
		WaterLevel:          "Knee",
		WaterLevelDetails:   "rising",
		UrgencyOfEvacuation: "High",
		HazardPresent:       "Electric",
		Accessibility:       "Boat only",
		ResourceNeeds:       "Food",
	}
)

func strp(s string) *string { return &s }

func newTestService(t *testing.T) (*Service, *gorm.DB, *recorder) {
	t.Helper()
	db, err := util.InitDatabase(nil, "sqlite", "file::memory:")
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	require.NoError(t, db.Create(&models.Terminal{ID: "T1", Name: "Riverside"}).Error)
	require.NoError(t, db.Create(&models.Terminal{ID: "T2"}).Error)
	require.NoError(t, db.Create(&models.FocalPerson{
		ID: "FP1", FirstName: "Ana", LastName: "Cruz", Address: "12 River Rd", ContactNumber: "0917",
	}).Error)
	require.NoError(t, db.Create(&models.Neighborhood{ID: "N1", FocalPersonID: strp("FP1"), TerminalID: strp("T1")}).Error)
	require.NoError(t, db.Create(&models.Dispatcher{ID: "D1", Name: "Dana"}).Error)

	local, err := cache.NewLocalCache(cache.LocalConfig{MaxSize: 500, DefaultExpiration: time.Minute, CleanupInterval: time.Minute})
	require.NoError(t, err)
	tc := cache.NewTieredCache(local, nil, nil, time.Minute)
	t.Cleanup(func() { tc.Close() })

	rec := &recorder{}
	return NewService(db, tc, rec), db, rec
}

func TestCreateAlert(t *testing.T) {
	svc, db, rec := newTestService(t)
	ctx := context.Background()

	alert, err := svc.CreateCriticalAlert(ctx, "T1", "")
	require.NoError(t, err)
	assert.Equal(t, "ALRT001", alert.ID)
	assert.Equal(t, models.AlertUnassigned, alert.Status)
	assert.Equal(t, "Sensor", alert.SentThrough)
	assert.Equal(t, models.AlertCritical, *alert.AlertType)

	live := rec.named(EventAlertCreated)
	require.Len(t, live, 2)
	assert.ElementsMatch(t, []string{"alerts:all", "terminal:T1"}, groupsOf(live))
	payload := live[0].payload.(LiveReport)
	assert.Equal(t, "ALRT001", payload.AlertID)
	require.NotNil(t, payload.Address)
	assert.Equal(t, "12 River Rd", *payload.Address)

	maps := rec.named(EventMapAlertCreated)
	require.Len(t, maps, 2)
	mp := maps[0].payload.(MapReport)
	assert.Equal(t, "Riverside", mp.TerminalName)
	assert.Equal(t, "Ana", mp.FocalFirstName)

	second, err := svc.CreateAlert(ctx, CreateAlertInput{
		TerminalID: "T2", AlertType: models.AlertUserInitiated, TerminalStatus: models.TerminalOnline,
	})
	require.NoError(t, err)
	assert.Equal(t, "ALRT002", second.ID)
	last := rec.named(EventMapAlertCreated)[3].payload.(MapReport)
	assert.Equal(t, "Terminal T2", last.TerminalName)
	assert.Equal(t, "N/A", last.FocalFirstName)
	assert.Equal(t, "N/A", last.FocalContactNumber)
	assert.Equal(t, models.TerminalOnline, last.TerminalStatus)

	terminal, err := models.GetTerminal(db, "T2")
	require.NoError(t, err)
	assert.Equal(t, models.TerminalOnline, terminal.Status)

	user, err := svc.CreateUserInitiatedAlert(ctx, "T1", "")
	require.NoError(t, err)
	assert.Equal(t, "Button", user.SentThrough)
}

func TestCreateAlertRejects(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateCriticalAlert(ctx, "T404", "")
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
	assert.Equal(t, "Terminal Not Found", err.Error())

	_, err = svc.CreateAlert(ctx, CreateAlertInput{TerminalID: "", AlertType: models.AlertCritical})
	assert.True(t, errors.IsKind(err, errors.KindValidation))

	_, err = svc.CreateAlert(ctx, CreateAlertInput{TerminalID: "T1", AlertType: "SOS"})
	assert.True(t, errors.IsKind(err, errors.KindValidation))

	assert.Empty(t, rec.named(EventAlertCreated))
}

func TestCreateAlertInvalidatesLists(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rows, err := svc.ListAlerts(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, rows)
	latest, err := svc.LatestMapAlerts(ctx)
	require.NoError(t, err)
	assert.Empty(t, latest)

	_, err = svc.CreateCriticalAlert(ctx, "T1", "")
	require.NoError(t, err)

	rows, err = svc.ListAlerts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	latest, err = svc.LatestMapAlerts(ctx)
	require.NoError(t, err)
	assert.Len(t, latest, 1)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	svc, db, rec := newTestService(t)
	rec.err = stderrors.New("socket gone")

	alert, err := svc.CreateCriticalAlert(context.Background(), "T1", "")
	require.NoError(t, err)
	_, err = models.GetAlert(db, alert.ID)
	assert.NoError(t, err)
}

// 场景一：先建救援单（等待列表），再手动调度
func TestSocketTrigger(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	who := websocket.Identity{ID: "T1", Role: "terminal"}

	id, err := svc.Trigger(ctx, who, websocket.TriggerRequest{TerminalID: "T1", TerminalStatus: "Online"})
	require.NoError(t, err)
	assert.Equal(t, "ALRT001", id)

	alert, err := models.GetAlert(db, id)
	require.NoError(t, err)
	assert.Equal(t, models.AlertCritical, *alert.AlertType)
	assert.Equal(t, "Socket", alert.SentThrough)
	terminal, err := models.GetTerminal(db, "T1")
	require.NoError(t, err)
	assert.Equal(t, models.TerminalOnline, terminal.Status)

	_, err = svc.Trigger(ctx, who, websocket.TriggerRequest{TerminalID: "T1", AlertType: "Flood"})
	assert.True(t, errors.IsKind(err, errors.KindValidation))
}

func TestSetStatusRequiresRescueForm(t *testing.T) {
	svc, db, rec := newTestService(t)
	ctx := context.Background()

	alert, err := svc.CreateCriticalAlert(ctx, "T1", "")
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, alert.ID, ActionDispatch)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindValidation))
	assert.Equal(t, "Rescue Form must be created before dispatching or waitlisting", err.Error())

	form, err := svc.CreateRescueForm(ctx, dispatcher, alert.ID, fullForm)
	require.NoError(t, err)
	assert.Equal(t, models.RescueWaitlisted, form.Status)
	assert.Equal(t, "RF001", form.ID)

	_, err = svc.SetStatus(ctx, alert.ID, "escalate")
	assert.True(t, errors.IsKind(err, errors.KindValidation))
	assert.Equal(t, "Invalid action. Use 'waitlist' or 'dispatch'.", err.Error())

	updated, err := svc.SetStatus(ctx, alert.ID, ActionWaitlist)
	require.NoError(t, err)
	assert.Equal(t, models.AlertWaitlist, updated.Status)

	updated, err = svc.SetStatus(ctx, alert.ID, ActionDispatch)
	require.NoError(t, err)
	assert.Equal(t, models.AlertDispatched, updated.Status)

	stored, err := models.GetAlert(db, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertDispatched, stored.Status)

	changed := rec.named(EventAlertStatusChanged)
	require.Len(t, changed, 2)
	assert.Equal(t, "alerts:all", changed[1].group)
	assert.Equal(t, models.AlertDispatched, changed[1].payload.(AlertStatusChanged).NewStatus)

	// 不能退回等待列表
	_, err = svc.SetStatus(ctx, alert.ID, ActionWaitlist)
	assert.True(t, errors.IsKind(err, errors.KindValidation))

	_, err = svc.SetStatus(ctx, "ALRT404", ActionDispatch)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}

// 场景二：直接以 Dispatched 创建救援单
func TestCreateRescueFormDispatched(t *testing.T) {
	svc, db, rec := newTestService(t)
	ctx := context.Background()

	alert, err := svc.CreateCriticalAlert(ctx, "T1", "")
	require.NoError(t, err)
	rec.reset()

	in := fullForm
	in.Status = models.RescueDispatched
	form, err := svc.CreateRescueForm(ctx, dispatcher, alert.ID, in)
	require.NoError(t, err)
	require.NotNil(t, form.OriginalAlertType)
	assert.Equal(t, models.AlertCritical, *form.OriginalAlertType)
	assert.Equal(t, "Knee - rising", *form.WaterLevel)
	assert.Equal(t, "High", *form.UrgencyOfEvacuation)
	assert.Nil(t, form.OtherInformation)
	require.NotNil(t, form.FocalPersonID)
	assert.Equal(t, "FP1", *form.FocalPersonID)

	stored, err := models.GetAlert(db, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertDispatched, stored.Status)
	assert.Nil(t, stored.AlertType)

	terminal, err := models.GetTerminal(db, "T1")
	require.NoError(t, err)
	assert.Equal(t, models.TerminalOnline, terminal.Status)

	updates := rec.named(EventAlertStatusUpdate)
	require.Len(t, updates, 2)
	assert.ElementsMatch(t, []string{"alerts:all", "terminal:T1"}, groupsOf(updates))
	update := updates[0].payload.(StatusUpdate)
	assert.Nil(t, update.AlertType)
	assert.Equal(t, "Dispatched", update.AlertStatus)
	assert.Equal(t, models.TerminalOnline, update.TerminalStatus)
	assert.Equal(t, form.ID, update.RescueFormID)
	assert.Equal(t, models.RescueDispatched, update.RescueFormStatus)
	assert.Equal(t, "Cruz", update.FocalLastName)

	removed := rec.named(EventWaitlistRemoved)
	require.Len(t, removed, 1)
	assert.Equal(t, "alerts:all", removed[0].group)
	assert.Equal(t, WaitlistRemoved{AlertID: alert.ID, RescueFormID: form.ID, Action: "dispatched"}, removed[0].payload)
}

func TestCreateRescueFormGuards(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateRescueForm(ctx, dispatcher, "ALRT404", fullForm)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))

	alert, err := svc.CreateUserInitiatedAlert(ctx, "T1", "")
	require.NoError(t, err)

	_, err = svc.CreateRescueForm(ctx, dispatcher, alert.ID, RescueFormInput{WaterLevel: "Knee"})
	assert.True(t, errors.IsKind(err, errors.KindValidation))
	assert.Equal(t, "All rescue details are required when focal is reachable.", err.Error())

	_, err = svc.CreateRescueForm(ctx, admin, alert.ID, fullForm)
	assert.True(t, errors.IsKind(err, errors.KindForbidden))
	assert.Equal(t, ReasonAdminCannotCreate, errors.ReasonOf(err))

	_, err = svc.CreateRescueForm(ctx, Actor{ID: "T1", Role: "terminal"}, alert.ID, fullForm)
	assert.True(t, errors.IsKind(err, errors.KindForbidden))
	assert.Equal(t, ReasonInvalidRole, errors.ReasonOf(err))

	_, err = svc.CreateRescueForm(ctx, dispatcher, alert.ID, RescueFormInput{FocalUnreachable: true, Status: models.RescueCompleted})
	assert.True(t, errors.IsKind(err, errors.KindValidation))

	form, err := svc.CreateRescueForm(ctx, dispatcher, alert.ID, RescueFormInput{FocalUnreachable: true})
	require.NoError(t, err)
	assert.True(t, form.FocalUnreachable)
	assert.Nil(t, form.WaterLevel)

	_, err = svc.CreateRescueForm(ctx, dispatcher, alert.ID, fullForm)
	assert.True(t, errors.IsKind(err, errors.KindConflict))
	assert.Equal(t, "Rescue Form Already Exists", err.Error())
}

func TestAuthorizeRescueFormRoles(t *testing.T) {
	assert.NoError(t, authorizeRescueForm(Actor{ID: "DSP001", Role: "dispatcher"}))
	assert.NoError(t, authorizeRescueForm(Actor{ID: "DSP001", Role: "Dispatcher"}))

	err := authorizeRescueForm(Actor{ID: "ADM001", Role: "admin"})
	assert.Equal(t, ReasonAdminCannotCreate, errors.ReasonOf(err))

	// 没有登录信息时角色为空
	err = authorizeRescueForm(Actor{})
	assert.True(t, errors.IsKind(err, errors.KindForbidden))
	assert.Equal(t, ReasonInvalidRole, errors.ReasonOf(err))
}

func TestUpdateRescueFormStatus(t *testing.T) {
	svc, db, rec := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpdateRescueFormStatus(ctx, "ALRT404", models.RescueDispatched)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))

	alert, err := svc.CreateUserInitiatedAlert(ctx, "T1", "")
	require.NoError(t, err)
	form, err := svc.CreateRescueForm(ctx, dispatcher, alert.ID, fullForm)
	require.NoError(t, err)

	// 模拟旧数据：没有保存 originalAlertType
	require.NoError(t, db.Model(&models.RescueForm{}).Where("id = ?", form.ID).Update("original_alert_type", nil).Error)

	view, err := svc.GetRescueForm(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RescueWaitlisted, view.Status)

	rec.reset()
	updated, err := svc.UpdateRescueFormStatus(ctx, alert.ID, models.RescueDispatched)
	require.NoError(t, err)
	assert.Equal(t, models.RescueDispatched, updated.Status)
	require.NotNil(t, updated.OriginalAlertType)
	assert.Equal(t, models.AlertUserInitiated, *updated.OriginalAlertType)
	assert.Len(t, rec.named(EventAlertStatusUpdate), 2)
	assert.Len(t, rec.named(EventWaitlistRemoved), 1)

	stored, err := models.FindRescueFormByEmergency(db, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RescueDispatched, stored.Status)
	assert.Equal(t, models.AlertUserInitiated, *stored.OriginalAlertType)

	storedAlert, err := models.GetAlert(db, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertDispatched, storedAlert.Status)
	assert.Nil(t, storedAlert.AlertType)

	// 缓存已失效
	view, err = svc.GetRescueForm(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RescueDispatched, view.Status)

	// 重复调度：幂等，再次推送
	_, err = svc.UpdateRescueFormStatus(ctx, alert.ID, models.RescueDispatched)
	require.NoError(t, err)
	assert.Len(t, rec.named(EventAlertStatusUpdate), 4)

	_, err = svc.UpdateRescueFormStatus(ctx, alert.ID, models.RescueWaitlisted)
	assert.True(t, errors.IsKind(err, errors.KindValidation))

	_, err = svc.UpdateRescueFormStatus(ctx, alert.ID, "Lost")
	assert.True(t, errors.IsKind(err, errors.KindValidation))
}

func TestRescueStatusChangesRefreshReports(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	alert, err := svc.CreateCriticalAlert(ctx, "T1", "")
	require.NoError(t, err)
	_, err = svc.CreateRescueForm(ctx, dispatcher, alert.ID, fullForm)
	require.NoError(t, err)

	aggregated, err := svc.AggregatedReports(ctx, "")
	require.NoError(t, err)
	require.Empty(t, aggregated)
	completed, err := svc.CompletedReports(ctx, false)
	require.NoError(t, err)
	require.Empty(t, completed)
	prf, err := svc.AggregatedPostRescue(ctx, "")
	require.NoError(t, err)
	require.Empty(t, prf)

	_, err = svc.UpdateRescueFormStatus(ctx, alert.ID, models.RescueDispatched)
	require.NoError(t, err)
	aggregated, err = svc.AggregatedReports(ctx, "")
	require.NoError(t, err)
	require.Len(t, aggregated, 1)
	assert.Equal(t, alert.ID, aggregated[0].EmergencyID)

	_, err = svc.UpdateRescueFormStatus(ctx, alert.ID, models.RescueCompleted)
	require.NoError(t, err)
	completed, err = svc.CompletedReports(ctx, false)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, alert.ID, completed[0].AlertID)
}

// 场景三：警报未调度时不能提交完成报告
func TestCreatePostRescueFormRequiresDispatch(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	input := PostRescueInput{NoOfPersonnelDeployed: 3, ResourcesUsed: "boat", ActionTaken: "evacuated"}

	_, err := svc.CreatePostRescueForm(ctx, "ALRT404", input)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))

	alert, err := svc.CreateCriticalAlert(ctx, "T1", "")
	require.NoError(t, err)
	_, err = svc.CreatePostRescueForm(ctx, alert.ID, input)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindValidation))
	assert.Contains(t, err.Error(), "dispatch a rescue team first")

	// 已调度但没有救援单
	require.NoError(t, db.Model(&models.Alert{}).Where("id = ?", alert.ID).Update("status", models.AlertDispatched).Error)
	_, err = svc.CreatePostRescueForm(ctx, alert.ID, input)
	assert.True(t, errors.IsKind(err, errors.KindValidation))
	assert.Equal(t, "Rescue Form Not Found", err.Error())
}

func TestCreatePostRescueForm(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	alert, err := svc.CreateCriticalAlert(ctx, "T1", "")
	require.NoError(t, err)
	in := fullForm
	in.Status = models.RescueDispatched
	form, err := svc.CreateRescueForm(ctx, dispatcher, alert.ID, in)
	require.NoError(t, err)

	// 先填充缓存，验证提交后被失效
	pending, err := svc.PendingReports(ctx, false)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	view, err := svc.GetRescueForm(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RescueDispatched, view.Status)
	aggregated, err := svc.AggregatedReports(ctx, "")
	require.NoError(t, err)
	require.Len(t, aggregated, 1)
	assert.False(t, aggregated[0].RescueCompleted)

	_, err = svc.CreatePostRescueForm(ctx, alert.ID, PostRescueInput{NoOfPersonnelDeployed: 2})
	assert.True(t, errors.IsKind(err, errors.KindValidation))

	prf, err := svc.CreatePostRescueForm(ctx, alert.ID, PostRescueInput{
		NoOfPersonnelDeployed: 3, ResourcesUsed: "boat", ActionTaken: "evacuated",
	})
	require.NoError(t, err)
	require.NotNil(t, prf.CompletedAt)

	view, err = svc.GetRescueForm(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RescueCompleted, view.Status)

	stored, err := models.GetRescueForm(db, form.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RescueCompleted, stored.Status)

	pending, err = svc.PendingReports(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, pending)
	completed, err := svc.CompletedReports(ctx, false)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, models.AlertCritical, *completed[0].AlertType)

	aggregated, err = svc.AggregatedReports(ctx, "")
	require.NoError(t, err)
	require.Len(t, aggregated, 1)
	assert.True(t, aggregated[0].RescueCompleted)

	_, err = svc.CreatePostRescueForm(ctx, alert.ID, PostRescueInput{
		NoOfPersonnelDeployed: 3, ResourcesUsed: "boat", ActionTaken: "evacuated",
	})
	assert.True(t, errors.IsKind(err, errors.KindConflict))
	assert.Equal(t, "Post Rescue Form Already Exists", err.Error())
}

func TestViews(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetAlert(ctx, "ALRT404")
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
	_, err = svc.GetRescueForm(ctx, "RF404")
	assert.True(t, errors.IsKind(err, errors.KindNotFound))

	alert, err := svc.CreateCriticalAlert(ctx, "T1", "")
	require.NoError(t, err)
	detail, err := svc.GetAlert(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, "Riverside", detail.TerminalName)

	occupied, err := svc.OccupiedTerminalMap(ctx)
	require.NoError(t, err)
	require.Len(t, occupied, 1)
	assert.Equal(t, alert.ID, *occupied[0].AlertID)

	unassigned, err := svc.ListAlerts(ctx, models.AlertUnassigned)
	require.NoError(t, err)
	assert.Len(t, unassigned, 1)

	_, err = svc.CreateRescueForm(ctx, dispatcher, alert.ID, fullForm)
	require.NoError(t, err)
	forms, err := svc.ListRescueForms(ctx)
	require.NoError(t, err)
	assert.Len(t, forms, 1)
	aggregates, err := svc.RescueAggregates(ctx, alert.ID)
	require.NoError(t, err)
	require.Len(t, aggregates, 1)
	assert.Equal(t, "Dana", *aggregates[0].DispatchedName)

	// 绕过服务直接写库后，refresh 读取最新数据
	completed, err := svc.CompletedReports(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, completed)
	require.NoError(t, db.Model(&models.RescueForm{}).Where("emergency_id = ?", alert.ID).
		Update("status", models.RescueCompleted).Error)
	completed, err = svc.CompletedReports(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, completed, "served from cache")
	completed, err = svc.CompletedReports(ctx, true)
	require.NoError(t, err)
	assert.Len(t, completed, 1)

	prf, err := svc.AggregatedPostRescue(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, prf)

	svc.ClearReportsCache(ctx)
	assert.Greater(t, svc.Cache().Stats().Hits, int64(0))
}
