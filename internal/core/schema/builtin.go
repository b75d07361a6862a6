package schema

import (
	"github.com/shopspring/decimal"

	"github.com/example/labbook/internal/models"
)

// Built-in schema IDs.
const (
	PrepV1  = "prep/v1"
	PrepV2  = "prep/v2"
	UsageV1 = "usage/v1"
)

var (
	fieldPreparedAt = Field{Name: "prepared_at", Header: "Prepared At", Aliases: []string{"작성일시"}, Kind: KindDateTime, Role: RoleTimestamp, Required: true}
	fieldMaterial   = Field{Name: "material", Header: "Material", Aliases: []string{"물질명"}, Kind: KindText, Role: RoleMaterial, Required: true}
	fieldPreparedBy = Field{Name: "prepared_by", Header: "Prepared By", Aliases: []string{"조제자"}, Kind: KindText, Role: RoleOperator, Required: true}
	fieldBasalLot   = Field{Name: "basal_media_lot", Header: "Basal Media Lot", Aliases: []string{"기본배지 Lot"}, Kind: KindText, Role: RoleLot}
	fieldFBSLot     = Field{Name: "fbs_lot", Header: "FBS Lot", Kind: KindText, Role: RoleLot}
	fieldAntiLot    = Field{Name: "antibiotics_lot", Header: "Antibiotics Lot", Kind: KindText, Role: RoleLot}
	fieldExpiry     = Field{Name: "expiry_date", Header: "Expiry Date", Aliases: []string{"사용기한"}, Kind: KindDate, Role: RoleAttribute}
	fieldNotes      = Field{Name: "notes", Header: "Notes", Aliases: []string{"비고"}, Kind: KindText, Role: RoleNotes}
)

func init() {
	register(Schema{
		ID:    PrepV1,
		Table: models.TablePreparation,
		Fields: []Field{
			fieldPreparedAt,
			fieldMaterial,
			fieldPreparedBy,
			fieldBasalLot,
			fieldFBSLot,
			fieldAntiLot,
			fieldExpiry,
			fieldNotes,
		},
	})

	register(Schema{
		ID:    PrepV2,
		Table: models.TablePreparation,
		Fields: []Field{
			{Name: "batch_id", Header: "Batch ID", Aliases: []string{"배치ID", "Batch No."}, Kind: KindText, Role: RoleBatchID, Required: true, Immutable: true},
			fieldPreparedAt,
			fieldMaterial,
			fieldPreparedBy,
			fieldBasalLot,
			fieldFBSLot,
			fieldAntiLot,
			{
				Name: "ph", Header: "pH", Kind: KindDecimal, Role: RoleAttribute,
				Min: decimal.NewNullDecimal(decimal.Zero),
				Max: decimal.NewNullDecimal(decimal.NewFromInt(14)),
			},
			{Name: "sterilized", Header: "Sterilized", Aliases: []string{"멸균여부"}, Kind: KindBool, Role: RoleAttribute},
			fieldExpiry,
			fieldNotes,
		},
	})

	register(Schema{
		ID:    UsageV1,
		Table: models.TableUsage,
		Fields: []Field{
			{Name: "used_at", Header: "Used At", Aliases: []string{"사용일시"}, Kind: KindDateTime, Role: RoleTimestamp, Required: true},
			fieldMaterial,
			{Name: "used_by", Header: "Used By", Aliases: []string{"사용자"}, Kind: KindText, Role: RoleOperator, Required: true},
			{Name: "amount", Header: "Amount/Details", Aliases: []string{"사용량/내용"}, Kind: KindText, Role: RoleAttribute},
			fieldNotes,
		},
	})
}
