package labs

// aliases maps normalized analyte names and abbreviations to canonical names.
var aliases = map[string]string{
	"hemoglobin":                  "hemoglobin",
	"haemoglobin":                 "hemoglobin",
	"hgb":                         "hemoglobin",
	"hb":                          "hemoglobin",
	"hematocrit":                  "hematocrit",
	"haematocrit":                 "hematocrit",
	"hct":                         "hematocrit",
	"wbc":                         "wbc",
	"wbc count":                   "wbc",
	"white blood cells":           "wbc",
	"white blood cell count":      "wbc",
	"leukocytes":                  "wbc",
	"rbc":                         "rbc",
	"red blood cells":             "rbc",
	"red blood cell count":        "rbc",
	"platelets":                   "platelets",
	"platelet count":              "platelets",
	"plt":                         "platelets",
	"glucose":                     "glucose",
	"glu":                         "glucose",
	"blood glucose":               "glucose",
	"fasting glucose":             "glucose",
	"sodium":                      "sodium",
	"na":                          "sodium",
	"potassium":                   "potassium",
	"k":                           "potassium",
	"chloride":                    "chloride",
	"cl":                          "chloride",
	"bicarbonate":                 "bicarbonate",
	"hco3":                        "bicarbonate",
	"co2":                         "bicarbonate",
	"bun":                         "bun",
	"urea nitrogen":               "bun",
	"blood urea nitrogen":         "bun",
	"creatinine":                  "creatinine",
	"creat":                       "creatinine",
	"cr":                          "creatinine",
	"calcium":                     "calcium",
	"ca":                          "calcium",
	"magnesium":                   "magnesium",
	"alt":                         "alt",
	"sgpt":                        "alt",
	"alanine aminotransferase":    "alt",
	"ast":                         "ast",
	"sgot":                        "ast",
	"aspartate aminotransferase":  "ast",
	"alkaline phosphatase":        "alkaline phosphatase",
	"alk phos":                    "alkaline phosphatase",
	"alp":                         "alkaline phosphatase",
	"bilirubin":                   "total bilirubin",
	"total bilirubin":             "total bilirubin",
	"bilirubin total":             "total bilirubin",
	"tbil":                        "total bilirubin",
	"albumin":                     "albumin",
	"alb":                         "albumin",
	"tsh":                         "tsh",
	"thyroid stimulating hormone": "tsh",
	"hba1c":                       "hba1c",
	"hb a1c":                      "hba1c",
	"a1c":                         "hba1c",
	"hemoglobin a1c":              "hba1c",
	"glycated hemoglobin":         "hba1c",
	"cholesterol":                 "total cholesterol",
	"total cholesterol":           "total cholesterol",
	"chol":                        "total cholesterol",
	"ldl":                         "ldl",
	"ldl c":                       "ldl",
	"ldl cholesterol":             "ldl",
	"hdl":                         "hdl",
	"hdl c":                       "hdl",
	"hdl cholesterol":             "hdl",
	"non hdl":                     "non-hdl cholesterol",
	"non hdl cholesterol":         "non-hdl cholesterol",
	"triglycerides":               "triglycerides",
	"trig":                        "triglycerides",
	"tg":                          "triglycerides",
	"inr":                         "inr",
	"pt inr":                      "inr",
	"crp":                         "crp",
	"c reactive protein":          "crp",
	"troponin":                    "troponin",
	"troponin i":                  "troponin",
	"trop":                        "troponin",
	"ferritin":                    "ferritin",
	"vitamin b12":                 "vitamin b12",
	"b12":                         "vitamin b12",
	"vitamin d":                   "vitamin d",
	"25 oh vitamin d":             "vitamin d",
}

// maxNameWords bounds the length of an analyte name in words.
const maxNameWords = 4

type defaultRange struct {
	low, high *float64
	units     []string // accepted normalized units; the first is canonical
}

func bound(v float64) *float64 { return &v }

// defaults holds adult reference ranges keyed by canonical name.
var defaults = map[string]defaultRange{
	"hemoglobin":           {bound(12.0), bound(17.5), []string{"g/dl"}},
	"hematocrit":           {bound(36), bound(52), []string{"%"}},
	"wbc":                  {bound(4.0), bound(11.0), []string{"x10^3/ul", "10^3/ul", "k/ul", "x10e3/ul", "10*3/ul", "thou/ul", "x10^9/l", "10^9/l"}},
	"rbc":                  {bound(4.2), bound(5.9), []string{"x10^6/ul", "10^6/ul", "m/ul", "x10e6/ul", "x10^12/l", "10^12/l"}},
	"platelets":            {bound(150), bound(450), []string{"x10^3/ul", "10^3/ul", "k/ul", "x10e3/ul", "10*3/ul", "thou/ul", "x10^9/l", "10^9/l"}},
	"glucose":              {bound(70), bound(99), []string{"mg/dl"}},
	"sodium":               {bound(135), bound(145), []string{"mmol/l", "meq/l"}},
	"potassium":            {bound(3.5), bound(5.1), []string{"mmol/l", "meq/l"}},
	"chloride":             {bound(98), bound(107), []string{"mmol/l", "meq/l"}},
	"bicarbonate":          {bound(22), bound(29), []string{"mmol/l", "meq/l"}},
	"bun":                  {bound(7), bound(20), []string{"mg/dl"}},
	"creatinine":           {bound(0.6), bound(1.3), []string{"mg/dl"}},
	"calcium":              {bound(8.5), bound(10.5), []string{"mg/dl"}},
	"magnesium":            {bound(1.7), bound(2.2), []string{"mg/dl"}},
	"alt":                  {bound(7), bound(56), []string{"u/l", "iu/l"}},
	"ast":                  {bound(10), bound(40), []string{"u/l", "iu/l"}},
	"alkaline phosphatase": {bound(44), bound(147), []string{"u/l", "iu/l"}},
	"total bilirubin":      {bound(0.1), bound(1.2), []string{"mg/dl"}},
	"albumin":              {bound(3.5), bound(5.0), []string{"g/dl"}},
	"tsh":                  {bound(0.4), bound(4.0), []string{"miu/l", "uiu/ml", "mu/l"}},
	"hba1c":                {bound(4.0), bound(5.6), []string{"%"}},
	"total cholesterol":    {nil, bound(199), []string{"mg/dl"}},
	"ldl":                  {nil, bound(99), []string{"mg/dl"}},
	"hdl":                  {bound(40), nil, []string{"mg/dl"}},
	"non-hdl cholesterol":  {nil, bound(129), []string{"mg/dl"}},
	"triglycerides":        {nil, bound(149), []string{"mg/dl"}},
	"inr":                  {bound(0.8), bound(1.1), []string{"", "ratio"}},
	"crp":                  {nil, bound(10), []string{"mg/l"}},
	"troponin":             {nil, bound(0.04), []string{"ng/ml"}},
	"ferritin":             {bound(24), bound(336), []string{"ng/ml", "ug/l"}},
	"vitamin b12":          {bound(200), bound(900), []string{"pg/ml"}},
	"vitamin d":            {bound(30), bound(100), []string{"ng/ml"}},
}
