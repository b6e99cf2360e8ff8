package warehouse

import (
	"time"

	"record-mapper/primitive"
	"record-mapper/record"
)

// Lab is the laboratory that analysed an assessment. Labs are shared
// between assessments.
type Lab struct {
	Name string  `feature:"name,input=lab,comment=laboratory name"`
	Site *string `feature:"site,input=lab_site,null=NA|n/a"`
}

// Range is a reference range of a measurement.
type Range struct {
	Low  float64 `feature:"low,input=range_low"`
	High float64 `feature:"high,input=range_high"`
	Unit string  `feature:"unit,input=range_unit"`
}

// Glucose is a blood glucose measurement normalized to mg/dL.
type Glucose struct {
	Value   float64 `feature:"value,inputs=glucose|glucose_unit,transform=glucose,comment=mg/dL"`
	Fasting *bool   `feature:"fasting,input=fasting,null=NA"`
	Range   *Range
}

// Hemolysis grades the hemolysis of one blood draw.
type Hemolysis struct {
	Index *int `feature:"index,series=t0:hemolysis_0|t1:hemolysis_1|t2:hemolysis_2,null=NA"`
}

// Draw is one of the timed blood draws of an assessment.
type Draw struct {
	Ident     *record.SeriesIdent
	Taken     time.Time `feature:"taken,series_inputs=t0:draw_0|t1:draw_1|t2:draw_2,transform=datetime"`
	Lactate   *float64  `feature:"lactate,series_inputs=t0:lactate_0+lactate_unit|t1:lactate_1+lactate_unit|t2:lactate_2+lactate_unit,transform=lactate,comment=mmol/L"`
	Hemolysis *Hemolysis
}

// Assessment is one row of an assessment export.
type Assessment struct {
	Case     string         `feature:"case,input=case_id,unique,comment=pseudonymized case id"`
	Visit    primitive.Date `feature:"visit,inputs=visit_date,transform=date"`
	Arrival  *time.Duration `feature:"arrival,inputs=arrival_time,transform=clock,comment=time of day"`
	Site     string         `feature:"site,input=site,default=main"`
	Lab      Lab
	Glucose  *Glucose
	Draws    []Draw
	Problems *string `feature:"problems,error"`
}
