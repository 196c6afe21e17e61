package capabilities

import (
	"context"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/harborworks/crewdb/modules/person/domain/value_objects/capability"
	"github.com/harborworks/crewdb/modules/person/permissions"
)

// capabilityModel grants (subject, object.field, action) through group
// membership.
const capabilityModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// CasbinProvider resolves per-field capabilities from group-based
// policies held in memory.
type CasbinProvider struct {
	enforcer *casbin.Enforcer
	// fields enumerates the known field names per object name.
	fields map[string][]string
}

// NewCasbinProvider builds a provider over the given object field
// registry and seeds the default group policies: every group reads every
// field, writes follow permissions.WritableFields.
func NewCasbinProvider(fields map[string][]string) (*CasbinProvider, error) {
	m, err := model.NewModelFromString(capabilityModel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse capability model")
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build capability enforcer")
	}

	p := &CasbinProvider{enforcer: enforcer, fields: fields}
	for object, names := range fields {
		for _, field := range names {
			obj := object + "." + field
			for group := range permissions.WritableFields {
				if _, err := enforcer.AddPolicy(group, obj, capability.ActionRead); err != nil {
					return nil, errors.Wrap(err, "failed to add read policy")
				}
			}
		}
		for group, writable := range permissions.WritableFields {
			for _, field := range writable {
				if _, err := enforcer.AddPolicy(group, object+"."+field, capability.ActionWrite); err != nil {
					return nil, errors.Wrap(err, "failed to add write policy")
				}
			}
		}
	}
	return p, nil
}

// AssignGroup puts a client into a capability group.
func (p *CasbinProvider) AssignGroup(clientID uuid.UUID, group string) error {
	_, err := p.enforcer.AddGroupingPolicy(clientID.String(), group)
	return errors.Wrap(err, "failed to assign capability group")
}

func (p *CasbinProvider) Capabilities(ctx context.Context, editorID uuid.UUID, object string) (capability.Set, error) {
	sub := editorID.String()
	var readable, writable []string
	for _, field := range p.fields[object] {
		obj := object + "." + field
		ok, err := p.enforcer.Enforce(sub, obj, capability.ActionRead)
		if err != nil {
			return capability.Set{}, errors.Wrap(err, "failed to check read capability")
		}
		if ok {
			readable = append(readable, field)
		}
		ok, err = p.enforcer.Enforce(sub, obj, capability.ActionWrite)
		if err != nil {
			return capability.Set{}, errors.Wrap(err, "failed to check write capability")
		}
		if ok {
			writable = append(writable, field)
		}
	}
	return capability.NewSet(readable, writable), nil
}
