package board

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Gonzalez-Esteban/tareasd/internal/identity"
	"github.com/Gonzalez-Esteban/tareasd/internal/model"
	"github.com/Gonzalez-Esteban/tareasd/internal/schedule"
	"github.com/Gonzalez-Esteban/tareasd/internal/views"
)

const transitionTimeout = 5 * time.Second

const helpText = `# Tablero de tareas

Las tareas vencidas aparecen primero, luego las por vencer y las
pendientes. El tiempo mostrado es relativo al vencimiento y se
recalcula solo.

- Completar marca la tarea como **Realizada** y, si es recurrente,
  crea la próxima ocurrencia.
- Cancelar la marca como **Cancelada** sin crear sucesora.
`

type StatusBar struct {
	Text    string
	IsError bool
}

type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Complete key.Binding
	Cancel   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "subir")),
		Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "bajar")),
		Complete: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "completar")),
		Cancel:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancelar")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "ayuda")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "salir")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Complete, k.Cancel, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

type SnapshotMsg struct {
	Snapshot schedule.Snapshot
}

type TransitionDoneMsg struct {
	ID     string
	Result schedule.TransitionResult
	Err    error
}

type Model struct {
	Snapshot    schedule.Snapshot
	Cursor      int
	InFlight    map[string]bool
	HelpVisible bool
	Status      StatusBar
	Keys        KeyMap
	Quitting    bool

	user      identity.User
	lifecycle *schedule.Lifecycle
	reeval    *schedule.Reevaluator

	spin      spinner.Model
	helpModel help.Model
	helpBody  string
}

func NewModel(user identity.User, lifecycle *schedule.Lifecycle, reeval *schedule.Reevaluator) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return Model{
		InFlight:  make(map[string]bool),
		Keys:      DefaultKeyMap(),
		user:      user,
		lifecycle: lifecycle,
		reeval:    reeval,
		spin:      s,
		helpModel: help.New(),
		helpBody:  views.RenderMarkdown(helpText),
		Snapshot:  reevalSnapshot(reeval),
	}
}

func reevalSnapshot(r *schedule.Reevaluator) schedule.Snapshot {
	if r == nil {
		return schedule.Snapshot{}
	}
	return r.Snapshot()
}

func (m Model) Init() tea.Cmd {
	if m.reeval == nil {
		return nil
	}
	return waitForSnapshotCmd(m.reeval.Updates())
}

func waitForSnapshotCmd(ch <-chan schedule.Snapshot) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return SnapshotMsg{Snapshot: snap}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(typed)
	case spinner.TickMsg:
		if len(m.InFlight) > 0 {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(typed)
			return m, cmd
		}
		return m, nil
	case SnapshotMsg:
		m.Snapshot = typed.Snapshot
		m.clampCursor()
		if m.reeval != nil {
			return m, waitForSnapshotCmd(m.reeval.Updates())
		}
		return m, nil
	case TransitionDoneMsg:
		delete(m.InFlight, typed.ID)
		switch {
		case errors.Is(typed.Err, schedule.ErrAlreadyTerminal):
			m.Status = StatusBar{Text: "la tarea ya estaba finalizada", IsError: false}
		case typed.Err != nil:
			m.Status = StatusBar{Text: "error: " + typed.Err.Error(), IsError: true}
		default:
			text := fmt.Sprintf("tarea %s", typed.Result.Ocurrencia.Estado)
			if typed.Result.Successor != nil {
				text += " | próxima ocurrencia creada"
			}
			if typed.Result.SuccessorErr != nil {
				text += " | error al crear la próxima: " + typed.Result.SuccessorErr.Error()
			}
			m.Status = StatusBar{Text: text, IsError: false}
		}
		if m.reeval != nil {
			m.reeval.Wake()
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		m.Quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.Keys.Help):
		m.HelpVisible = !m.HelpVisible
		return m, nil
	case key.Matches(msg, m.Keys.Up):
		if m.Cursor > 0 {
			m.Cursor--
		}
		return m, nil
	case key.Matches(msg, m.Keys.Down):
		if m.Cursor < len(m.rows())-1 {
			m.Cursor++
		}
		return m, nil
	case key.Matches(msg, m.Keys.Complete):
		return m.startTransition(model.EstadoRealizada)
	case key.Matches(msg, m.Keys.Cancel):
		return m.startTransition(model.EstadoCancelada)
	}
	return m, nil
}

// startTransition fires the lifecycle call as a command. A row with a
// transition in flight ignores further keys so an impatient double press
// cannot submit twice.
func (m Model) startTransition(estado model.Estado) (tea.Model, tea.Cmd) {
	task, ok := m.selectedTask()
	if !ok || m.lifecycle == nil {
		return m, nil
	}
	if m.InFlight[task.Ocurrencia.ID] {
		return m, nil
	}
	m.InFlight[task.Ocurrencia.ID] = true
	m.Status = StatusBar{Text: "enviando transición...", IsError: false}

	fn := m.lifecycle.Complete
	if estado == model.EstadoCancelada {
		fn = m.lifecycle.Cancel
	}
	id := task.Ocurrencia.ID
	actor := m.user.ID
	cmd := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), transitionTimeout)
		defer cancel()
		result, err := fn(ctx, id, actor, time.Now().UTC())
		return TransitionDoneMsg{ID: id, Result: result, Err: err}
	}
	return m, tea.Batch(cmd, m.spin.Tick)
}

// rows returns the snapshot tasks in urgency order: Vencida, Por vencer,
// Pendiente, stable within each group.
func (m Model) rows() []schedule.TaskView {
	out := make([]schedule.TaskView, len(m.Snapshot.Tasks))
	copy(out, m.Snapshot.Tasks)
	sort.SliceStable(out, func(i, j int) bool {
		return estadoRank(out[i].Estado) < estadoRank(out[j].Estado)
	})
	return out
}

func estadoRank(estado model.Estado) int {
	switch estado {
	case model.EstadoVencida:
		return 0
	case model.EstadoPorVencer:
		return 1
	default:
		return 2
	}
}

func (m Model) selectedTask() (schedule.TaskView, bool) {
	rows := m.rows()
	if m.Cursor < 0 || m.Cursor >= len(rows) {
		return schedule.TaskView{}, false
	}
	return rows[m.Cursor], true
}

func (m *Model) clampCursor() {
	if n := len(m.Snapshot.Tasks); m.Cursor >= n {
		m.Cursor = n - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
}

func (m Model) View() string {
	rows := m.rows()
	selectedID := ""
	if sel, ok := m.selectedTask(); ok {
		selectedID = sel.Ocurrencia.ID
	}

	boardRows := make([]views.BoardRowData, 0, len(rows))
	for _, task := range rows {
		boardRows = append(boardRows, views.BoardRowData{
			ID:          task.Ocurrencia.ID,
			Descripcion: task.Ocurrencia.Descripcion,
			Estado:      string(task.Estado),
			Display:     task.Display,
			DueAt:       task.Ocurrencia.DueAt.Format("2006-01-02 15:04"),
			Asignados:   task.Ocurrencia.Asignados,
			InFlight:    m.InFlight[task.Ocurrencia.ID],
		})
	}
	takenAt := ""
	if !m.Snapshot.TakenAt.IsZero() {
		takenAt = m.Snapshot.TakenAt.Format("15:04:05")
	}
	boardPanel := views.RenderBoardPanel(views.BoardPanelData{
		Rows:       boardRows,
		SelectedID: selectedID,
		TakenAt:    takenAt,
		Skipped:    m.Snapshot.Skipped,
		Spinner:    m.spin.View(),
	})

	side := ""
	if sel, ok := m.selectedTask(); ok {
		side = views.RenderDetailPanel(views.DetailPanelData{
			Descripcion: sel.Ocurrencia.Descripcion,
			Estado:      string(sel.Estado),
			Display:     sel.Display,
			DueAt:       sel.Ocurrencia.DueAt.Format("2006-01-02 15:04"),
			Asignados:   sel.Ocurrencia.Asignados,
			CreadoPor:   sel.Ocurrencia.CreadoPor,
		})
	}
	if m.HelpVisible {
		helpPanel := views.RenderHelpPanel(views.HelpPanelData{
			Bindings: []string{m.helpBody},
			HelpView: m.helpModel.View(m.Keys),
		})
		if side != "" {
			side += "\n\n" + helpPanel
		} else {
			side = helpPanel
		}
	}

	status := m.Status.Text
	if m.Status.IsError && status != "" {
		status = "error: " + m.Status.Text
	}
	return views.RenderApp(views.AppData{
		Header:     fmt.Sprintf("tareasd | usuario: %s | tareas: %d", m.user.DisplayName, len(rows)),
		Board:      boardPanel,
		SidePane:   side,
		StatusLine: status,
		Footer:     "teclas: j/k mover | c completar | x cancelar | ? ayuda | q salir",
	})
}
