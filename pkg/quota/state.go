package quota

import (
	"context"
	"errors"

	"github.com/byteai/builder/pkg/usermeta"
)

// Metadata keys.
const (
	progressKey      = "progress"
	projectsKey      = "projects"
	generatedAppsKey = "generatedApps"
)

type state struct {
	user     *usermeta.User
	progress *UserProgress
	projects []UserProject
}

func (s *service) load(ctx context.Context, userID string) (*state, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, errors.Join(ErrLoadFailed, err)
	}
	st := &state{user: u}

	var p UserProgress
	ok, err := u.PublicMetadata.Decode(progressKey, &p)
	if err != nil {
		return nil, errors.Join(ErrLoadFailed, err)
	}
	if ok {
		p.UserID = userID
		st.progress = &p
	}
	if _, err := u.PrivateMetadata.Decode(projectsKey, &st.projects); err != nil {
		return nil, errors.Join(ErrLoadFailed, err)
	}
	return st, nil
}

func (st *state) activeProjects() int64 {
	var n int64
	for _, p := range st.projects {
		if p.Active() {
			n++
		}
	}
	return n
}

func (st *state) generatedApps() ([]GeneratedApp, error) {
	var apps []GeneratedApp
	if _, err := st.user.PrivateMetadata.Decode(generatedAppsKey, &apps); err != nil {
		return nil, errors.Join(ErrLoadFailed, err)
	}
	return apps, nil
}

func (s *service) write(ctx context.Context, userID string, upd usermeta.Update) error {
	if err := s.store.UpdateUserMetadata(ctx, userID, upd); err != nil {
		return errors.Join(ErrSaveFailed, err)
	}
	return nil
}

func progressUpdate(p *UserProgress) (usermeta.Update, error) {
	public := usermeta.Metadata{}
	if err := public.Set(progressKey, p); err != nil {
		return usermeta.Update{}, errors.Join(ErrSaveFailed, err)
	}
	return usermeta.Update{Public: public}, nil
}

func (s *service) writeProgress(ctx context.Context, p *UserProgress) error {
	upd, err := progressUpdate(p)
	if err != nil {
		return err
	}
	return s.write(ctx, p.UserID, upd)
}

func (s *service) writeProjects(ctx context.Context, userID string, projects []UserProject) error {
	if projects == nil {
		projects = []UserProject{}
	}
	private := usermeta.Metadata{}
	if err := private.Set(projectsKey, projects); err != nil {
		return errors.Join(ErrSaveFailed, err)
	}
	return s.write(ctx, userID, usermeta.Update{Private: private})
}
