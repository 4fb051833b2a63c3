package state

import (
	"context"
	"errors"
	"sync"

	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/VULUxOMID/GoldGames/internal/models"

	"go.uber.org/zap"
)

// Phase is where a profile visit stands.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseLoading  Phase = "loading"
	PhaseFound    Phase = "found"
	PhaseCreating Phase = "creating"
	PhaseCreated  Phase = "created"
	PhaseError    Phase = "error"
)

const (
	MsgProfileConflict  = "This profile was modified elsewhere. Please refresh and try again."
	MsgProfileNotLoaded = "Profile is not loaded yet"
)

type ProfileState struct {
	Profile   *models.Profile `json:"profile,omitempty"`
	Phase     Phase           `json:"phase"`
	IsEditing bool            `json:"isEditing"`
	Loading   bool            `json:"loading"`
	Error     string          `json:"error,omitempty"`
}

type Profile struct {
	gw gateway.Gateway

	mu      sync.Mutex
	seq     sequencer
	profile *models.Profile
	phase   Phase
	editing bool
	err     string
}

func NewProfile(gw gateway.Gateway) *Profile {
	return &Profile{gw: gw, phase: PhaseIdle}
}

func (p *Profile) Snapshot() ProfileState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := ProfileState{Phase: p.phase, IsEditing: p.editing, Loading: p.seq.busy(), Error: p.err}
	if p.profile != nil {
		cp := *p.profile
		st.Profile = &cp
	}
	return st
}

func (p *Profile) setPhase(t uint64, phase Phase) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seq.current(t) {
		p.phase = phase
	}
}

// Load fetches the user's profile, creating a default one the first time. A unique violation on
// create means another session created it first, so the row is fetched again.
func (p *Profile) Load(ctx context.Context, user models.User) error {
	p.mu.Lock()
	t := p.seq.begin()
	p.phase = PhaseLoading
	p.mu.Unlock()

	profile, phase, err := p.fetchOrCreate(ctx, t, user)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.seq.replace(t) {
		return err
	}
	if err != nil {
		p.phase = PhaseError
		p.err = gateway.MessageOf(err)
		return err
	}
	p.profile = profile
	p.phase = phase
	p.err = ""
	return nil
}

func (p *Profile) fetchOrCreate(ctx context.Context, t uint64, user models.User) (*models.Profile, Phase, error) {
	profile, err := p.gw.GetProfile(ctx, user.ID)
	if err == nil {
		return profile, PhaseFound, nil
	}
	if !errors.Is(err, gateway.ErrNotFound) {
		return nil, PhaseError, err
	}

	p.setPhase(t, PhaseCreating)
	created, err := p.gw.CreateProfile(ctx, models.DefaultProfile(user))
	if err == nil {
		zap.L().Info("Created default profile", zap.String("user_id", user.ID))
		return created, PhaseCreated, nil
	}
	if !errors.Is(err, gateway.ErrUniqueViolation) {
		return nil, PhaseError, err
	}

	profile, err = p.gw.GetProfile(ctx, user.ID)
	if err != nil {
		return nil, PhaseError, err
	}
	return profile, PhaseFound, nil
}

func (p *Profile) Edit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.profile != nil {
		p.editing = true
	}
}

func (p *Profile) CancelEdit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.editing = false
	p.err = ""
}

// Save writes patch conditioned on the updated_at this store last saw. On a conflict nothing is
// applied and the editor stays open.
func (p *Profile) Save(ctx context.Context, patch models.ProfilePatch) error {
	p.mu.Lock()
	if p.profile == nil {
		p.err = MsgProfileNotLoaded
		p.mu.Unlock()
		return errors.New(MsgProfileNotLoaded)
	}
	id, expected := p.profile.ID, p.profile.UpdatedAt
	t := p.seq.begin()
	p.mu.Unlock()

	updated, err := p.gw.UpdateProfile(ctx, id, patch, expected)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.seq.replace(t) {
		return err
	}
	if errors.Is(err, gateway.ErrConflict) {
		p.err = MsgProfileConflict
		return err
	}
	if err != nil {
		p.err = gateway.MessageOf(err)
		return err
	}
	p.profile = updated
	p.editing = false
	p.err = ""
	return nil
}

func (p *Profile) ClearError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = ""
}

func (p *Profile) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq.reset()
	p.profile = nil
	p.phase = PhaseIdle
	p.editing = false
	p.err = ""
}
