package modules

import (
	personmodule "github.com/harborworks/crewdb/modules/person"
	"github.com/harborworks/crewdb/pkg/application"
)

// BuiltInModules are registered on every boot, in order.
var BuiltInModules = []application.Module{
	personmodule.NewModule(),
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range append(BuiltInModules, externalModules...) {
		if err := module.Register(app); err != nil {
			return err
		}
		app.Logger().WithField("module", module.Name()).Info("registered module")
	}
	return nil
}
