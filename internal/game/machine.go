package game

import (
	"fmt"
	"time"

	"github.com/codelafda/codelafda/internal/util"
	"github.com/enescakir/emoji"
	"github.com/google/uuid"
	"github.com/valyala/fastrand"
	"go.uber.org/zap"
)

var ErrValidation = fmt.Errorf("validation error")

// Notifier fans machine output out to the room's clients. All methods are
// fire-and-forget; a slow client never blocks the machine.
type Notifier interface {
	BroadcastState(s *State)
	BroadcastChat(senderID, text string)
	NotifyCompilers(message string)
	SendError(playerID, message string)
	ClosePlayer(playerID string)
}

// Scheduler defers fn by d and runs it serialized with every other room
// message, never concurrently with the machine.
type Scheduler interface {
	After(d time.Duration, fn func())
}

type Config struct {
	RoundSeconds     int
	SabotageCooldown time.Duration
	ErrorClearDelay  time.Duration

	// artificial pipeline step delays standing in for async work
	PrepareDelay   time.Duration
	CompilersDelay time.Duration
	QuestionsDelay time.Duration
	AssignDelay    time.Duration
	StartDelay     time.Duration
}

func DefaultConfig() Config {
	return Config{
		RoundSeconds:     300,
		SabotageCooldown: 30 * time.Second,
		ErrorClearDelay:  5 * time.Second,
		PrepareDelay:     500 * time.Millisecond,
		CompilersDelay:   time.Second,
		QuestionsDelay:   500 * time.Millisecond,
		AssignDelay:      800 * time.Millisecond,
		StartDelay:       500 * time.Millisecond,
	}
}

var neonColors = []string{
	"var(--color-neon-green)",
	"var(--color-neon-blue)",
	"var(--color-neon-purple)",
	"var(--color-neon-pink)",
}

// Machine owns one room's GameState and applies every player action to it.
// It is not safe for concurrent use; the owning room serializes all calls.
type Machine struct {
	cfg       Config
	state     *State
	history   map[string][]Role
	questions Questions
	notifier  Notifier
	scheduler Scheduler
	logger    *zap.SugaredLogger
}

func NewMachine(
	cfg Config,
	questions Questions,
	notifier Notifier,
	scheduler Scheduler,
	logger *zap.SugaredLogger,
) *Machine {
	return &Machine{
		cfg:       cfg,
		state:     NewState(),
		history:   map[string][]Role{},
		questions: questions,
		notifier:  notifier,
		scheduler: scheduler,
		logger:    logger,
	}
}

func (m *Machine) State() *State {
	return m.state
}

// RoleHistory returns the recorded role tail for one player.
func (m *Machine) RoleHistory(playerID string) []Role {
	return m.history[playerID]
}

func (m *Machine) HandleJoin(playerID, username string, prefs *Preferences) {
	// a fresh join into a finished room starts over; role history survives
	if m.state.Phase == PhaseResults && len(m.state.Players) == 0 {
		m.state = NewState()
	}

	first := len(m.state.Players) == 0

	player := &Player{
		ID:          playerID,
		Username:    username,
		IsAlive:     true,
		Color:       neonColors[fastrand.Uint32n(uint32(len(neonColors)))],
		Preferences: prefs,
	}

	if first {
		m.state.HostID = playerID
		if prefs != nil && len(prefs.TechStacks) > 0 {
			m.state.SelectedStacks = append([]string{}, prefs.TechStacks...)
		}
	} else if prefs != nil {
		m.state.MergeStacks(prefs.TechStacks)
	}

	m.state.AddPlayer(player)
	m.logger.Infof("player joined: %s (%s)", username, playerID)
	m.notifier.BroadcastState(m.state)
}

func (m *Machine) HandleReady(playerID string) {
	player, ok := m.state.Players[playerID]
	if !ok {
		return
	}

	player.IsReady = !player.IsReady
	m.notifier.BroadcastState(m.state)
}

func (m *Machine) HandleCodeChange(playerID, code string) {
	m.state.Code = code
	m.notifier.BroadcastState(m.state)
}

// HandleStartGame runs the five-step start pipeline. Any failed step aborts
// the rest, reverts to the lobby and surfaces a self-expiring error banner.
func (m *Machine) HandleStartGame(playerID string) {
	if playerID != m.state.HostID {
		m.logger.Infof("player %s attempted start-game but is not host", playerID)
		m.notifier.SendError(playerID, "Only the host can start the game")
		return
	}

	if m.state.Phase != PhaseLobby {
		m.notifier.SendError(playerID, "Game already in progress")
		return
	}

	if err := m.runStartPipeline(); err != nil {
		m.abortStart(err)
	}
}

func (m *Machine) runStartPipeline() error {
	if err := m.transitionToPrepare(); err != nil {
		return err
	}
	m.transitionToLoadCompilers()
	if err := m.transitionToLoadQuestions(); err != nil {
		return err
	}
	m.transitionToAssignImposter()
	m.transitionToStartRound()
	return nil
}

func (m *Machine) transitionToPrepare() error {
	m.updatePhase(PhasePrepare, "Validating game setup...", 10)

	if len(m.state.Players) < 3 {
		return fmt.Errorf("%w: need at least 3 players to start", ErrValidation)
	}

	for _, p := range m.state.Players {
		if !p.IsReady {
			return fmt.Errorf("%w: all players must be ready", ErrValidation)
		}
	}

	if len(m.state.SelectedStacks) == 0 {
		return fmt.Errorf("%w: no tech stacks selected", ErrValidation)
	}

	m.sleep(m.cfg.PrepareDelay)
	return nil
}

func (m *Machine) transitionToLoadCompilers() {
	m.updatePhase(PhaseLoadCompilers, "Loading compilers...", 30)
	m.notifier.NotifyCompilers("Initializing execution environment...")
	m.sleep(m.cfg.CompilersDelay)
}

func (m *Machine) transitionToLoadQuestions() error {
	m.updatePhase(PhaseLoadQuestions, "Selecting coding challenge...", 60)

	question, ok := m.questions.Select(m.state.SelectedStacks)
	if !ok {
		return fmt.Errorf("%w: no questions available for selected tech stacks", ErrValidation)
	}

	m.state.CurrentQuestion = question
	m.state.Code = question.StarterCode
	m.state.CurrentTask = question.Description

	m.sleep(m.cfg.QuestionsDelay)
	return nil
}

func (m *Machine) transitionToAssignImposter() {
	m.updatePhase(PhaseAssignImposter, "Assigning roles...", 80)
	m.assignRoles()
	m.sleep(m.cfg.AssignDelay)
}

func (m *Machine) transitionToStartRound() {
	m.updatePhase(PhaseStartRound, "Starting match...", 95)
	m.sleep(m.cfg.StartDelay)

	m.state.Phase = PhaseCoding
	m.state.Timer = m.cfg.RoundSeconds
	m.state.LoadingProgress = nil

	m.notifier.BroadcastState(m.state)
}

func (m *Machine) updatePhase(phase Phase, message string, progress int) {
	m.state.Phase = phase
	m.state.LoadingProgress = &LoadingProgress{Phase: phase, Message: message, Progress: progress}
	m.notifier.BroadcastState(m.state)
}

func (m *Machine) abortStart(err error) {
	m.logger.Errorf("start pipeline aborted: %v", err)

	m.state.Phase = PhaseLobby
	m.state.ErrorMessage = err.Error()
	m.state.LoadingProgress = nil
	m.notifier.BroadcastState(m.state)

	msg := err.Error()
	m.scheduler.After(m.cfg.ErrorClearDelay, func() {
		if m.state.ErrorMessage != msg {
			return
		}
		m.state.ErrorMessage = ""
		m.notifier.BroadcastState(m.state)
	})
}

func (m *Machine) assignRoles() {
	ids := m.state.PlayerIDs()
	impostors := PickImposters(ids, m.history)

	isImpostor := map[string]bool{}
	for _, id := range impostors {
		isImpostor[id] = true
	}

	for _, id := range ids {
		player := m.state.Players[id]
		role := RoleHacker
		if isImpostor[id] {
			role = RoleImpostor
			player.SabotagePowers = defaultPowers()
		} else {
			player.SabotagePowers = nil
		}
		player.Role = role
		m.history[id] = append(m.history[id], role)
	}

	m.logger.Infof("assigned %d impostor(s) among %d players", len(impostors), len(ids))
}

func (m *Machine) HandleSabotage(playerID string, kind SabotageType, targetID string) {
	player, ok := m.state.Players[playerID]
	if !ok {
		return
	}

	if player.Role != RoleImpostor {
		m.logger.Infof("player %s attempted sabotage but is not an impostor", playerID)
		m.notifier.SendError(playerID, "Only impostors can sabotage")
		return
	}

	power := player.Power(kind)
	if power == nil {
		m.notifier.SendError(playerID, fmt.Sprintf("You do not have the %s power", kind))
		return
	}

	if power.Cooldown > 0 {
		m.notifier.SendError(playerID, fmt.Sprintf("%s is on cooldown for %ds", kind, power.Cooldown))
		return
	}

	if power.UsesRemaining <= 0 {
		m.notifier.SendError(playerID, fmt.Sprintf("%s has no uses remaining", kind))
		return
	}

	eventType := "TIME_REDUCTION"
	switch kind {
	case SabotageInjectBug:
		m.state.Code += "\n# SYSTEM_ERROR: Unexpected token detected\n"
		eventType = "SYNTAX_ERROR"
	case SabotageAlterOutput:
		m.state.Output = "Tests Failed (System Compromised)"
		eventType = "HIDDEN_BUG"
	case SabotageDelayCompile:
		// advisory to the execution collaborator, no state mutation
	}

	m.state.Sabotages = append(m.state.Sabotages, SabotageEvent{
		ID:             uuid.NewString(),
		Type:           eventType,
		Active:         true,
		TargetPlayerID: targetID,
	})

	power.UsesRemaining--
	power.Cooldown = int(m.cfg.SabotageCooldown.Seconds())

	m.scheduler.After(m.cfg.SabotageCooldown, func() {
		current, ok := m.state.Players[playerID]
		if !ok {
			return
		}
		if p := current.Power(kind); p != nil {
			p.Cooldown = 0
			m.notifier.BroadcastState(m.state)
		}
	})

	m.logger.Infof("player %s used sabotage %s", playerID, kind)
	m.notifier.BroadcastState(m.state)
}

func (m *Machine) HandleVote(playerID, targetID string) {
	player, ok := m.state.Players[playerID]
	if !ok {
		return
	}

	if !player.IsAlive {
		m.logger.Infof("player %s attempted to vote while dead", playerID)
		m.notifier.SendError(playerID, "Ejected players cannot vote")
		return
	}

	if m.state.Votes == nil {
		m.state.Votes = map[string]string{}
	}
	m.state.Votes[playerID] = targetID

	if m.everyoneVoted() {
		m.resolveVotes()
		return
	}

	m.notifier.BroadcastState(m.state)
}

func (m *Machine) everyoneVoted() bool {
	var cast int
	for voter := range m.state.Votes {
		if p, ok := m.state.Players[voter]; ok && p.IsAlive {
			cast++
		}
	}
	return cast >= len(m.state.AlivePlayers())
}

func (m *Machine) resolveVotes() {
	if ejected, ok := Tally(m.state.Votes); ok {
		if player, found := m.state.Players[ejected]; found {
			player.IsAlive = false
			m.notifier.BroadcastChat("SYSTEM", fmt.Sprintf(
				"%v %s was ejected. They were a %s.", emoji.Skull, player.Username, player.Role,
			))
		}
	} else {
		m.notifier.BroadcastChat("SYSTEM", "No one was ejected. (Tie or skipped)")
	}

	m.state.Votes = map[string]string{}
	m.checkWinCondition()
}

// checkWinCondition runs after every ejection resolution. Order matters:
// the zero-impostor check wins even in degenerate states.
func (m *Machine) checkWinCondition() {
	impostors := m.state.AliveByRole(RoleImpostor)
	hackers := m.state.AliveByRole(RoleHacker)

	switch {
	case impostors == 0:
		m.finish(WinnerHackers)
	case impostors >= hackers:
		m.finish(WinnerImpostors)
	}

	m.notifier.BroadcastState(m.state)
}

func (m *Machine) finish(winner Winner) {
	m.state.Winner = winner
	m.state.Phase = PhaseResults
	m.state.LoadingProgress = nil

	icon := emoji.Laptop.String()
	if winner == WinnerImpostors {
		icon = emoji.Detective.String()
	}
	m.notifier.BroadcastChat("SYSTEM", fmt.Sprintf("%v %s win!", icon, winner))
}

func (m *Machine) HandleKickPlayer(playerID, targetID string) {
	if playerID != m.state.HostID {
		m.logger.Infof("player %s attempted kick but is not host", playerID)
		m.notifier.SendError(playerID, "Only the host can kick players")
		return
	}

	m.state.RemovePlayer(targetID)
	m.reassignHost(targetID)
	m.notifier.BroadcastState(m.state)
	m.notifier.ClosePlayer(targetID)
}

// HandleEndGame is a trusted shortcut: the presentation layer reports task
// completion, which resolves the match as a hacker win.
func (m *Machine) HandleEndGame(playerID string) {
	m.logger.Infof("end-game reported by %s", playerID)
	m.finish(WinnerHackers)
	m.notifier.BroadcastState(m.state)
}

func (m *Machine) HandleDisconnect(playerID string) {
	if _, ok := m.state.Players[playerID]; !ok {
		return
	}

	m.state.RemovePlayer(playerID)
	m.reassignHost(playerID)
	m.notifier.BroadcastState(m.state)
}

func (m *Machine) reassignHost(departed string) {
	if m.state.HostID != departed {
		return
	}

	m.state.HostID = ""
	if ids := m.state.PlayerIDs(); len(ids) > 0 {
		m.state.HostID = ids[0]
	}
}

func (m *Machine) sleep(d time.Duration) {
	if d > 0 {
		util.Sleep(d)
	}
}
