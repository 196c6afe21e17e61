package application

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"reflect"
	"sort"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/harborworks/crewdb/pkg/eventbus"
)

// Module is a self-contained feature unit that wires its services and
// controllers into the application at boot.
type Module interface {
	Name() string
	Register(app Application) error
}

// Controller registers HTTP routes on the shared router.
type Controller interface {
	Key() string
	Register(r *mux.Router)
}

type Application interface {
	Pool() *pgxpool.Pool
	EventPublisher() eventbus.EventBus
	Logger() *logrus.Logger

	RegisterServices(services ...interface{})
	// Service returns the registered service matching the type of the
	// given zero value. Panics when the service was never registered;
	// module wiring errors are boot-time bugs.
	Service(service interface{}) interface{}

	RegisterControllers(controllers ...Controller)
	Controllers() []Controller

	Migrations() *MigrationRegistry
}

type ApplicationOptions struct {
	Pool     *pgxpool.Pool
	EventBus eventbus.EventBus
	Logger   *logrus.Logger
}

func New(opts *ApplicationOptions) Application {
	return &application{
		pool:       opts.Pool,
		eventBus:   opts.EventBus,
		logger:     opts.Logger,
		services:   map[reflect.Type]interface{}{},
		migrations: &MigrationRegistry{},
	}
}

type application struct {
	pool        *pgxpool.Pool
	eventBus    eventbus.EventBus
	logger      *logrus.Logger
	services    map[reflect.Type]interface{}
	controllers []Controller
	migrations  *MigrationRegistry
}

func (a *application) Pool() *pgxpool.Pool {
	return a.pool
}

func (a *application) EventPublisher() eventbus.EventBus {
	return a.eventBus
}

func (a *application) Logger() *logrus.Logger {
	return a.logger
}

func (a *application) RegisterServices(services ...interface{}) {
	for _, svc := range services {
		a.services[reflect.TypeOf(svc).Elem()] = svc
	}
}

func (a *application) Service(service interface{}) interface{} {
	svc, ok := a.services[reflect.TypeOf(service)]
	if !ok {
		panic(fmt.Sprintf("service %s is not registered", reflect.TypeOf(service).Name()))
	}
	return svc
}

func (a *application) RegisterControllers(controllers ...Controller) {
	a.controllers = append(a.controllers, controllers...)
}

func (a *application) Controllers() []Controller {
	return a.controllers
}

func (a *application) Migrations() *MigrationRegistry {
	return a.migrations
}

// MigrationRegistry collects embedded schema files from modules and
// applies them at boot. Files apply in lexical order per registration.
type MigrationRegistry struct {
	schemas []*embed.FS
}

func (m *MigrationRegistry) RegisterSchema(files *embed.FS) {
	m.schemas = append(m.schemas, files)
}

func (m *MigrationRegistry) Apply(ctx context.Context, pool *pgxpool.Pool) error {
	for _, schema := range m.schemas {
		var paths []string
		if err := fs.WalkDir(schema, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && path.Ext(p) == ".sql" {
				paths = append(paths, p)
			}
			return nil
		}); err != nil {
			return err
		}
		sort.Strings(paths)

		for _, p := range paths {
			content, err := schema.ReadFile(p)
			if err != nil {
				return err
			}
			if _, err := pool.Exec(ctx, string(content)); err != nil {
				return errors.Wrapf(err, "failed to apply schema %s", p)
			}
		}
	}
	return nil
}
