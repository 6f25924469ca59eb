package repositories

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-content-repository/cache"
	"github.com/goliatone/go-content-repository/logging"
	"github.com/goliatone/go-content-repository/models"
	"github.com/goliatone/go-content-repository/persistence/dtos"
	"github.com/goliatone/go-content-repository/persistence/factories"
)

// DataTypeRepository stores data types and their pre-values. Pre-value
// strings are cached in the runtime cache per data type.
type DataTypeRepository struct {
	db      bun.IDB
	runtime cache.CacheService
	logger  *slog.Logger
	now     func() time.Time
	// owners maps a pre-value id to its data type id, so a cached
	// pre-value key can be built from the pre-value id alone.
	owners *xsync.MapOf[int, int]
}

// NewDataTypeRepository builds the repository. runtime may be nil, in which
// case pre-values are read from storage every time.
func NewDataTypeRepository(db bun.IDB, runtime cache.CacheService, opts Options) *DataTypeRepository {
	opts = opts.withDefaults()
	return &DataTypeRepository{
		db:      db,
		runtime: runtime,
		logger:  logging.Component(opts.Logger, "data_type_repository"),
		now:     opts.Now,
		owners:  xsync.NewMapOf[int, int](),
	}
}

// WithTx returns a copy of the repository running on tx.
func (r *DataTypeRepository) WithTx(tx bun.IDB) *DataTypeRepository {
	out := *r
	out.db = tx
	return &out
}

// Save stores the data type and replaces its pre-values. New data types get
// an id and their pre-values get ids.
func (r *DataTypeRepository) Save(ctx context.Context, dt *models.DataType) error {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if dt.ID == 0 {
			return r.persistNew(ctx, tx, dt)
		}
		return r.persistUpdated(ctx, tx, dt)
	})
	if err != nil {
		return err
	}
	return r.invalidate(ctx, dt.ID)
}

func (r *DataTypeRepository) persistNew(ctx context.Context, tx bun.IDB, dt *models.DataType) error {
	if dt.Key == uuid.Nil {
		dt.Key = uuid.New()
	}
	node := &dtos.NodeDto{
		ParentID:       models.RootID,
		Level:          1,
		Path:           "-1",
		UniqueID:       dt.Key,
		Text:           dt.Name,
		NodeObjectType: models.ObjectTypeDataType,
		CreateDate:     r.now(),
	}
	if _, err := tx.NewInsert().Model(node).Exec(ctx); err != nil {
		return storageError(err, "insert data type node failed")
	}
	node.Path = "-1," + strconv.Itoa(node.NodeID)
	if _, err := tx.NewUpdate().Model(node).Column("path").WherePK().Exec(ctx); err != nil {
		return storageError(err, "update data type path failed")
	}
	dt.ID = node.NodeID

	row := factories.BuildDataTypeDto(dt)
	if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
		return storageError(err, "insert data type failed")
	}
	return r.replacePreValues(ctx, tx, dt)
}

func (r *DataTypeRepository) persistUpdated(ctx context.Context, tx bun.IDB, dt *models.DataType) error {
	if _, err := tx.NewUpdate().
		Model((*dtos.NodeDto)(nil)).
		Set(`"text" = ?`, dt.Name).
		Where(`"id" = ?`, dt.ID).
		Exec(ctx); err != nil {
		return storageError(err, "update data type node failed")
	}

	row := factories.BuildDataTypeDto(dt)
	if _, err := tx.NewUpdate().
		Model((*dtos.DataTypeDto)(nil)).
		Set(`"propertyEditorAlias" = ?`, row.PropertyEditorAlias).
		Set(`"dbType" = ?`, row.DbType).
		Where(`"nodeId" = ?`, dt.ID).
		Exec(ctx); err != nil {
		return storageError(err, "update data type failed")
	}
	return r.replacePreValues(ctx, tx, dt)
}

func (r *DataTypeRepository) replacePreValues(ctx context.Context, tx bun.IDB, dt *models.DataType) error {
	if _, err := tx.NewDelete().
		Model((*dtos.DataTypePreValueDto)(nil)).
		Where(`"datatypeNodeId" = ?`, dt.ID).
		Exec(ctx); err != nil {
		return storageError(err, "delete pre-values failed")
	}

	for i := range dt.PreValues {
		pv := &dt.PreValues[i]
		row := &dtos.DataTypePreValueDto{
			DataTypeNodeID: dt.ID,
			Value:          pv.Value,
			SortOrder:      pv.SortOrder,
			Alias:          pv.Alias,
		}
		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			return storageError(err, "insert pre-value failed")
		}
		pv.ID = row.ID
	}
	return nil
}

// invalidate drops the cached pre-value strings of a data type.
func (r *DataTypeRepository) invalidate(ctx context.Context, dataTypeID int) error {
	r.owners.Range(func(pvID, dtID int) bool {
		if dtID == dataTypeID {
			r.owners.Delete(pvID)
		}
		return true
	})
	r.logger.Debug("invalidated pre-values", "data_type_id", dataTypeID)
	if r.runtime == nil {
		return nil
	}
	return r.runtime.DeleteMatching(ctx, cache.PreValuePattern(dataTypeID))
}

// Get returns the data type with the given id, or nil.
func (r *DataTypeRepository) Get(ctx context.Context, id int) (*models.DataType, error) {
	var nodes []dtos.NodeDto
	if err := r.db.NewSelect().
		Model(&nodes).
		Where(`"id" = ?`, id).
		Where(`"nodeObjectType" = ?`, models.ObjectTypeDataType).
		Scan(ctx); err != nil {
		return nil, storageError(err, "data type node lookup failed")
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	var row dtos.DataTypeDto
	if err := r.db.NewSelect().Model(&row).Where(`"nodeId" = ?`, id).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, storageError(err, "data type lookup failed")
	}

	var preValues []dtos.DataTypePreValueDto
	if err := r.db.NewSelect().
		Model(&preValues).
		Where(`"datatypeNodeId" = ?`, id).
		OrderExpr(`"sortorder" ASC, "id" ASC`).
		Scan(ctx); err != nil {
		return nil, storageError(err, "pre-value lookup failed")
	}
	return factories.BuildDataType(nodes[0], row, preValues), nil
}

// GetPreValues returns the pre-values of the given data types, keyed by data
// type id. Data types without pre-values are absent.
func (r *DataTypeRepository) GetPreValues(ctx context.Context, dataTypeIDs ...int) (map[int]models.PreValueCollection, error) {
	return preValueCollections(ctx, r.db, distinctInts(dataTypeIDs))
}

// GetPreValueAsString returns the value of one pre-value, or "" when it does
// not exist. Once the owning data type of a pre-value is known, reads go
// through the runtime cache.
func (r *DataTypeRepository) GetPreValueAsString(ctx context.Context, preValueID int) (string, error) {
	if dtID, ok := r.owners.Load(preValueID); ok && r.runtime != nil {
		return cache.GetOrFetch(ctx, r.runtime, cache.PreValueKey(dtID, preValueID), func(ctx context.Context) (string, error) {
			row, _, err := r.loadPreValue(ctx, preValueID)
			return row.Value, err
		})
	}

	row, found, err := r.loadPreValue(ctx, preValueID)
	if err != nil || !found {
		return "", err
	}
	r.owners.Store(preValueID, row.DataTypeNodeID)
	if r.runtime != nil {
		r.runtime.Set(ctx, cache.PreValueKey(row.DataTypeNodeID, preValueID), row.Value)
	}
	return row.Value, nil
}

func (r *DataTypeRepository) loadPreValue(ctx context.Context, preValueID int) (dtos.DataTypePreValueDto, bool, error) {
	var row dtos.DataTypePreValueDto
	err := r.db.NewSelect().Model(&row).Where(`"id" = ?`, preValueID).Scan(ctx)
	if isNoRows(err) {
		return row, false, nil
	}
	if err != nil {
		return row, false, storageError(err, "pre-value lookup failed")
	}
	return row, true, nil
}
