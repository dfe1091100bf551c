package table

import "time"

// Streets, derived from the visible board-card count.
const (
	StreetPreflop = "PREFLOP"
	StreetFlop    = "FLOP"
	StreetTurn    = "TURN"
	StreetRiver   = "RIVER"
)

// Blinds are the table stakes read from the window title.
type Blinds struct {
	Small float64 `json:"sb"`
	Big   float64 `json:"bb"`
}

// State is the fully-formed table snapshot published once per tick.
// Consumers (dashboard, decision engine) only ever see whole values;
// the pipeline swaps in a fresh State by reference each tick.
type State struct {
	Tick       uint64    `json:"tick"`
	CapturedAt time.Time `json:"captured_at"`

	HeroCards  []string   `json:"hero_cards"`
	BoardCards []string   `json:"board_cards"`
	Opponents  [][]string `json:"opponent_cards"`

	Street        string `json:"street"`
	HeroActive    bool   `json:"hero_active"`
	PlayersInHand int    `json:"players_in_hand"`
	ActivePlayers int    `json:"active_players"`

	ConfirmedSeats int     `json:"confirmed_seats"`
	TrackedSeats   int     `json:"tracked_seats"`
	SeatPoints     []Point `json:"seat_points,omitempty"`

	// TableFormat is the working label: the geometric verdict when one
	// exists, else the stack-count heuristic. FormatResult is the raw
	// classifier output and may be FormatDetecting.
	TableFormat  string  `json:"table_format"`
	FormatResult string  `json:"format_result"`
	FormatScore  float64 `json:"format_score,omitempty"`

	Blinds Blinds  `json:"blinds"`
	Pot    float64 `json:"pot,omitempty"`
	ToCall float64 `json:"to_call,omitempty"`

	FPS       float64 `json:"fps"`
	LastError string  `json:"last_error,omitempty"`
}

// Assembler folds per-tick component outputs into a State, carrying
// the small cross-tick memory the table model needs: the last street,
// the last two-card hero sighting and the last known blinds.
type Assembler struct {
	cfg        Config
	lastStreet string
	heroSeenAt time.Time
	blinds     Blinds
}

// NewAssembler creates a state assembler.
func NewAssembler(cfg Config) *Assembler {
	return &Assembler{cfg: cfg, lastStreet: StreetPreflop}
}

// SetBlinds records stakes parsed from the window title. Zero values
// are ignored so a missed parse never erases known stakes.
func (a *Assembler) SetBlinds(b Blinds) {
	if b.Big > 0 {
		a.blinds = b
	}
}

// Build assembles the published snapshot for one tick.
func (a *Assembler) Build(res Resolution, seats RegistrySnapshot, format FormatResult, sizer SizerEstimate, now time.Time) State {
	st := State{
		HeroCards:      cardLabelList(res.Hero),
		BoardCards:     cardLabelList(res.Board),
		Opponents:      res.Opponents,
		ConfirmedSeats: seats.Confirmed,
		TrackedSeats:   seats.Tracked,
		SeatPoints:     seats.Points,
		FormatResult:   format.Format,
		FormatScore:    format.Score,
		Blinds:         a.blinds,
	}

	// Hero stays active for a grace window after the last two-card
	// sighting, so a single occluded frame does not drop the table
	// back to idle pacing mid-hand.
	if len(st.HeroCards) >= 2 {
		a.heroSeenAt = now
		st.HeroActive = true
	} else if now.Sub(a.heroSeenAt) < a.cfg.HeroStickyFor {
		st.HeroActive = true
	}

	// Street follows the board count; 1 or 2 visible cards is a
	// partially-dealt or misread flop, so the previous street stands.
	switch len(st.BoardCards) {
	case 0:
		a.lastStreet = StreetPreflop
	case 3:
		a.lastStreet = StreetFlop
	case 4:
		a.lastStreet = StreetTurn
	case 5:
		a.lastStreet = StreetRiver
	}
	st.Street = a.lastStreet

	st.PlayersInHand = len(st.Opponents)
	if len(st.HeroCards) > 0 {
		st.PlayersInHand++
	}
	if st.PlayersInHand < 2 && len(st.BoardCards) > 0 {
		st.PlayersInHand = 2
	}

	// Occupancy: trust whichever signal sees more of the table, then
	// keep it consistent with the cards actually in play.
	seated := seats.Confirmed
	if len(st.HeroCards) > 0 {
		seated++
	}
	active := sizer.Count
	if seated > active {
		active = seated
	}
	if st.PlayersInHand > active {
		active = st.PlayersInHand
	}
	if active < 2 {
		active = 2
	}
	st.ActivePlayers = active

	st.TableFormat = format.Format
	if format.Format == FormatDetecting {
		st.TableFormat = sizer.Format
	}

	return st
}

func cardLabelList(cards []ResolvedCard) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.Label)
	}
	return out
}
