package store

import (
	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/refdaerr"
)

func derefNotFound(path ari.ObjectPath) error {
	return refdaerr.DerefNotFound(path.String())
}

func derefWrongType(path ari.ObjectPath, registered ari.Kind) error {
	return refdaerr.DerefWrongType(path.String(), path.Type.String(), registered.String())
}
