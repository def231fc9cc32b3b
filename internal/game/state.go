package game

// Phase is the current stage of a room's state machine.
type Phase string

const (
	PhaseLobby          Phase = "LOBBY"
	PhasePrepare        Phase = "PREPARE"
	PhaseLoadCompilers  Phase = "LOAD_COMPILERS"
	PhaseLoadQuestions  Phase = "LOAD_QUESTIONS"
	PhaseAssignImposter Phase = "ASSIGN_IMPOSTER"
	PhaseStartRound     Phase = "START_ROUND"
	PhaseCoding         Phase = "CODING"
	PhaseSabotage       Phase = "SABOTAGE"
	PhaseDiscussion     Phase = "DISCUSSION"
	PhaseVoting         Phase = "VOTING"
	PhaseResults        Phase = "RESULTS"
)

type Role string

const (
	RoleHacker   Role = "HACKER"
	RoleImpostor Role = "IMPOSTOR"
)

type Winner string

const (
	WinnerHackers   Winner = "HACKERS"
	WinnerImpostors Winner = "IMPOSTORS"
)

type SabotageType string

const (
	SabotageInjectBug    SabotageType = "INJECT_BUG"
	SabotageAlterOutput  SabotageType = "ALTER_OUTPUT"
	SabotageDelayCompile SabotageType = "DELAY_COMPILE"
)

// SabotagePower is a limited-use, cooldown-gated ability held by an impostor.
type SabotagePower struct {
	Type          SabotageType `json:"type"`
	Cooldown      int          `json:"cooldown"`
	MaxUses       int          `json:"maxUses"`
	UsesRemaining int          `json:"usesRemaining"`
}

type SabotageEvent struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Active         bool   `json:"active"`
	TargetPlayerID string `json:"targetPlayerId,omitempty"`
}

type Preferences struct {
	TechStacks []string `json:"techStacks"`
	SkillLevel string   `json:"skillLevel"`
	GameMode   string   `json:"gameMode"`
}

type Player struct {
	ID             string           `json:"id"`
	Username       string           `json:"username"`
	Role           Role             `json:"role,omitempty"`
	IsReady        bool             `json:"isReady"`
	IsAlive        bool             `json:"isAlive"`
	Color          string           `json:"color,omitempty"`
	Preferences    *Preferences     `json:"preferences,omitempty"`
	SabotagePowers []*SabotagePower `json:"sabotagePowers,omitempty"`
}

func (p *Player) Power(kind SabotageType) *SabotagePower {
	for _, power := range p.SabotagePowers {
		if power.Type == kind {
			return power
		}
	}
	return nil
}

type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	IsHidden       bool   `json:"isHidden,omitempty"`
}

type Question struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	StarterCode  string     `json:"starterCode"`
	TestCases    []TestCase `json:"testCases"`
	Difficulty   string     `json:"difficulty"`
	TechStack    string     `json:"techStack"`
	CompilerType string     `json:"compilerType,omitempty"`
}

// LoadingProgress drives the client progress UI during the start pipeline.
type LoadingProgress struct {
	Phase    Phase  `json:"phase"`
	Message  string `json:"message"`
	Progress int    `json:"progress"`
}

const defaultCode = `# FIX THE BUG TO DEPLOY

def calculate_sum(a, b):
    # TODO: Implement this function
    return a - b  # Wait, is this right?`

// State holds everything a room broadcasts. It has a single writer, the
// room that owns it; nothing outside that room's loop may mutate it.
type State struct {
	Phase           Phase              `json:"phase"`
	Players         map[string]*Player `json:"players"`
	HostID          string             `json:"hostId"`
	Timer           int                `json:"timer"`
	Code            string             `json:"code"`
	Output          string             `json:"output"`
	MissionProgress int                `json:"missionProgress"`
	CurrentTask     string             `json:"currentTask,omitempty"`
	Sabotages       []SabotageEvent    `json:"sabotages"`
	SelectedStacks  []string           `json:"selectedStacks"`
	LoadingProgress *LoadingProgress   `json:"loadingProgress,omitempty"`
	CurrentQuestion *Question          `json:"currentQuestion,omitempty"`
	ErrorMessage    string             `json:"errorMessage,omitempty"`
	Votes           map[string]string  `json:"votes,omitempty"`
	Winner          Winner             `json:"winner,omitempty"`

	// join order; map iteration order is useless for host reassignment
	order []string
}

func NewState() *State {
	return &State{
		Phase:          PhaseLobby,
		Players:        map[string]*Player{},
		Code:           defaultCode,
		Sabotages:      []SabotageEvent{},
		SelectedStacks: []string{},
	}
}

func (s *State) AddPlayer(p *Player) {
	if _, ok := s.Players[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.Players[p.ID] = p
}

func (s *State) RemovePlayer(id string) {
	delete(s.Players, id)
	for i, pid := range s.order {
		if pid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// PlayerIDs returns player ids in join order.
func (s *State) PlayerIDs() []string {
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

func (s *State) AlivePlayers() []*Player {
	var alive []*Player
	for _, id := range s.order {
		if p := s.Players[id]; p != nil && p.IsAlive {
			alive = append(alive, p)
		}
	}
	return alive
}

func (s *State) AliveByRole(role Role) int {
	var n int
	for _, p := range s.Players {
		if p.IsAlive && p.Role == role {
			n++
		}
	}
	return n
}

// MergeStacks unions in stacks that are not selected yet, keeping
// first-seen order.
func (s *State) MergeStacks(stacks []string) {
StackLoop:
	for _, stack := range stacks {
		for _, existing := range s.SelectedStacks {
			if existing == stack {
				continue StackLoop
			}
		}
		s.SelectedStacks = append(s.SelectedStacks, stack)
	}
}
