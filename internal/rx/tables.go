package rx

// aliases maps brand names, abbreviations and salt forms to generic names.
// Keys are in normalized form.
var aliases = map[string]string{
	"coumadin":              "warfarin",
	"jantoven":              "warfarin",
	"asa":                   "aspirin",
	"bayer":                 "aspirin",
	"ecotrin":               "aspirin",
	"acetylsalicylic acid":  "aspirin",
	"advil":                 "ibuprofen",
	"motrin":                "ibuprofen",
	"nurofen":               "ibuprofen",
	"aleve":                 "naproxen",
	"naprosyn":              "naproxen",
	"voltaren":              "diclofenac",
	"celebrex":              "celecoxib",
	"tylenol":               "acetaminophen",
	"paracetamol":           "acetaminophen",
	"apap":                  "acetaminophen",
	"plavix":                "clopidogrel",
	"diflucan":              "fluconazole",
	"cordarone":             "amiodarone",
	"pacerone":              "amiodarone",
	"flagyl":                "metronidazole",
	"viagra":                "sildenafil",
	"revatio":               "sildenafil",
	"cialis":                "tadalafil",
	"nitrostat":             "nitroglycerin",
	"gtn":                   "nitroglycerin",
	"glyceryl trinitrate":   "nitroglycerin",
	"imdur":                 "isosorbide mononitrate",
	"zocor":                 "simvastatin",
	"lipitor":               "atorvastatin",
	"atorvastatin calcium":  "atorvastatin",
	"crestor":               "rosuvastatin",
	"biaxin":                "clarithromycin",
	"sporanox":              "itraconazole",
	"prozac":                "fluoxetine",
	"zoloft":                "sertraline",
	"lexapro":               "escitalopram",
	"celexa":                "citalopram",
	"paxil":                 "paroxetine",
	"nardil":                "phenelzine",
	"ultram":                "tramadol",
	"trexall":               "methotrexate",
	"bactrim":               "trimethoprim",
	"septra":                "trimethoprim",
	"zestril":               "lisinopril",
	"prinivil":              "lisinopril",
	"vasotec":               "enalapril",
	"altace":                "ramipril",
	"aldactone":             "spironolactone",
	"klor con":              "potassium chloride",
	"k dur":                 "potassium chloride",
	"lithobid":              "lithium",
	"lithium carbonate":     "lithium",
	"hctz":                  "hydrochlorothiazide",
	"microzide":             "hydrochlorothiazide",
	"lanoxin":               "digoxin",
	"prilosec":              "omeprazole",
	"nexium":                "esomeprazole",
	"protonix":              "pantoprazole",
	"cipro":                 "ciprofloxacin",
	"zanaflex":              "tizanidine",
	"synthroid":             "levothyroxine",
	"levoxyl":               "levothyroxine",
	"tums":                  "calcium carbonate",
	"oxycontin":             "oxycodone",
	"roxicodone":            "oxycodone",
	"xanax":                 "alprazolam",
	"valium":                "diazepam",
	"ativan":                "lorazepam",
	"klonopin":              "clonazepam",
	"glucophage":            "metformin",
	"accutane":              "isotretinoin",
	"depakote":              "valproate",
	"valproic acid":         "valproate",
	"divalproex":            "valproate",
	"cytotec":               "misoprostol",
	"propecia":              "finasteride",
	"proscar":               "finasteride",
	"vibramycin":            "doxycycline",
	"ms contin":             "morphine",
	"norco":                 "hydrocodone",
	"vicodin":               "hydrocodone",
	"thalomid":              "thalidomide",
	"potassium chloride er": "potassium chloride",
}

type interaction struct {
	severity  Severity
	rationale string
}

// pair is an unordered drug pair; newPair orders its members so (a,b) and
// (b,a) produce the same key.
type pair struct{ a, b string }

func newPair(x, y string) pair {
	if y < x {
		x, y = y, x
	}
	return pair{x, y}
}

var interactions = map[pair]interaction{}

func addInteraction(a, b string, sev Severity, rationale string) {
	interactions[newPair(a, b)] = interaction{sev, rationale}
}

func init() {
	addInteraction("warfarin", "aspirin", SeverityMajor, "additive bleeding risk from anticoagulant plus antiplatelet")
	addInteraction("warfarin", "ibuprofen", SeverityMajor, "NSAID increases bleeding risk and may raise INR")
	addInteraction("warfarin", "naproxen", SeverityMajor, "NSAID increases bleeding risk and may raise INR")
	addInteraction("warfarin", "diclofenac", SeverityMajor, "NSAID increases bleeding risk and may raise INR")
	addInteraction("warfarin", "clopidogrel", SeverityMajor, "additive bleeding risk from anticoagulant plus antiplatelet")
	addInteraction("warfarin", "fluconazole", SeverityMajor, "CYP2C9 inhibition markedly raises INR")
	addInteraction("warfarin", "amiodarone", SeverityMajor, "CYP inhibition raises INR; dose reduction usually required")
	addInteraction("warfarin", "metronidazole", SeverityMajor, "CYP2C9 inhibition markedly raises INR")
	addInteraction("warfarin", "trimethoprim", SeverityMajor, "raises INR and bleeding risk")
	addInteraction("warfarin", "acetaminophen", SeverityModerate, "regular use may raise INR")
	addInteraction("aspirin", "ibuprofen", SeverityModerate, "ibuprofen may blunt aspirin antiplatelet effect; additive GI bleeding risk")
	addInteraction("aspirin", "naproxen", SeverityModerate, "additive GI bleeding risk")
	addInteraction("aspirin", "clopidogrel", SeverityModerate, "additive bleeding risk")
	addInteraction("clopidogrel", "omeprazole", SeverityModerate, "CYP2C19 inhibition reduces clopidogrel activation")
	addInteraction("clopidogrel", "esomeprazole", SeverityModerate, "CYP2C19 inhibition reduces clopidogrel activation")
	addInteraction("sildenafil", "nitroglycerin", SeverityContraindicated, "profound hypotension with PDE5 inhibitor plus nitrate")
	addInteraction("sildenafil", "isosorbide mononitrate", SeverityContraindicated, "profound hypotension with PDE5 inhibitor plus nitrate")
	addInteraction("tadalafil", "nitroglycerin", SeverityContraindicated, "profound hypotension with PDE5 inhibitor plus nitrate")
	addInteraction("tadalafil", "isosorbide mononitrate", SeverityContraindicated, "profound hypotension with PDE5 inhibitor plus nitrate")
	addInteraction("simvastatin", "clarithromycin", SeverityContraindicated, "CYP3A4 inhibition raises statin levels; rhabdomyolysis risk")
	addInteraction("simvastatin", "itraconazole", SeverityContraindicated, "CYP3A4 inhibition raises statin levels; rhabdomyolysis risk")
	addInteraction("simvastatin", "amiodarone", SeverityMajor, "raises simvastatin exposure; myopathy risk")
	addInteraction("atorvastatin", "clarithromycin", SeverityMajor, "CYP3A4 inhibition raises statin levels")
	addInteraction("fluoxetine", "phenelzine", SeverityContraindicated, "serotonin syndrome risk with SSRI plus MAOI")
	addInteraction("sertraline", "phenelzine", SeverityContraindicated, "serotonin syndrome risk with SSRI plus MAOI")
	addInteraction("escitalopram", "phenelzine", SeverityContraindicated, "serotonin syndrome risk with SSRI plus MAOI")
	addInteraction("tramadol", "phenelzine", SeverityContraindicated, "serotonin syndrome risk with MAOI")
	addInteraction("tramadol", "sertraline", SeverityMajor, "serotonin syndrome and seizure risk")
	addInteraction("tramadol", "fluoxetine", SeverityMajor, "serotonin syndrome and seizure risk")
	addInteraction("methotrexate", "trimethoprim", SeverityMajor, "additive antifolate effect; bone marrow suppression")
	addInteraction("methotrexate", "ibuprofen", SeverityMajor, "reduced methotrexate clearance")
	addInteraction("lisinopril", "spironolactone", SeverityMajor, "hyperkalemia risk")
	addInteraction("lisinopril", "potassium chloride", SeverityMajor, "hyperkalemia risk")
	addInteraction("enalapril", "spironolactone", SeverityMajor, "hyperkalemia risk")
	addInteraction("lithium", "ibuprofen", SeverityMajor, "NSAID reduces lithium clearance; toxicity risk")
	addInteraction("lithium", "naproxen", SeverityMajor, "NSAID reduces lithium clearance; toxicity risk")
	addInteraction("lithium", "lisinopril", SeverityMajor, "ACE inhibitor reduces lithium clearance; toxicity risk")
	addInteraction("lithium", "hydrochlorothiazide", SeverityMajor, "thiazide reduces lithium clearance; toxicity risk")
	addInteraction("digoxin", "amiodarone", SeverityMajor, "raises digoxin levels; toxicity risk")
	addInteraction("ciprofloxacin", "tizanidine", SeverityContraindicated, "CYP1A2 inhibition causes severe hypotension and sedation")
	addInteraction("ciprofloxacin", "calcium carbonate", SeverityModerate, "chelation reduces ciprofloxacin absorption; separate doses")
	addInteraction("levothyroxine", "calcium carbonate", SeverityMinor, "reduced levothyroxine absorption; separate doses by 4 hours")
	addInteraction("oxycodone", "alprazolam", SeverityMajor, "additive CNS and respiratory depression")
	addInteraction("oxycodone", "diazepam", SeverityMajor, "additive CNS and respiratory depression")
	addInteraction("morphine", "diazepam", SeverityMajor, "additive CNS and respiratory depression")
	addInteraction("morphine", "alprazolam", SeverityMajor, "additive CNS and respiratory depression")
	addInteraction("hydrocodone", "alprazolam", SeverityMajor, "additive CNS and respiratory depression")
	addInteraction("metformin", "hydrochlorothiazide", SeverityMinor, "thiazide may raise blood glucose")
}

// pregnancyRisks lists drugs with a pregnancy contraindication or major fetal risk.
var pregnancyRisks = map[string]interaction{
	"warfarin":       {SeverityContraindicated, "fetal warfarin syndrome and fetal hemorrhage"},
	"isotretinoin":   {SeverityContraindicated, "severe teratogen"},
	"methotrexate":   {SeverityContraindicated, "teratogenic and abortifacient"},
	"valproate":      {SeverityContraindicated, "neural tube defects and neurodevelopmental harm"},
	"lisinopril":     {SeverityContraindicated, "fetal renal toxicity in second and third trimester"},
	"enalapril":      {SeverityContraindicated, "fetal renal toxicity in second and third trimester"},
	"ramipril":       {SeverityContraindicated, "fetal renal toxicity in second and third trimester"},
	"atorvastatin":   {SeverityContraindicated, "statins are avoided in pregnancy"},
	"simvastatin":    {SeverityContraindicated, "statins are avoided in pregnancy"},
	"rosuvastatin":   {SeverityContraindicated, "statins are avoided in pregnancy"},
	"misoprostol":    {SeverityContraindicated, "uterotonic; causes miscarriage"},
	"finasteride":    {SeverityContraindicated, "feminization of male fetus"},
	"thalidomide":    {SeverityContraindicated, "severe teratogen"},
	"ibuprofen":      {SeverityMajor, "NSAIDs after 20 weeks risk oligohydramnios and ductus closure"},
	"naproxen":       {SeverityMajor, "NSAIDs after 20 weeks risk oligohydramnios and ductus closure"},
	"diclofenac":     {SeverityMajor, "NSAIDs after 20 weeks risk oligohydramnios and ductus closure"},
	"doxycycline":    {SeverityMajor, "tooth discoloration and bone growth effects"},
	"lithium":        {SeverityMajor, "cardiac malformation risk; specialist review required"},
	"trimethoprim":   {SeverityMajor, "folate antagonist in first trimester"},
	"fluconazole":    {SeverityMajor, "high-dose use linked to birth defects"},
	"spironolactone": {SeverityMajor, "antiandrogenic effects on male fetus"},
}

// therapeuticClasses groups drugs whose concurrent use is usually duplicate therapy.
var therapeuticClasses = map[string][]string{
	"NSAID":                 {"ibuprofen", "naproxen", "diclofenac", "celecoxib"},
	"SSRI":                  {"fluoxetine", "sertraline", "citalopram", "escitalopram", "paroxetine"},
	"statin":                {"atorvastatin", "simvastatin", "rosuvastatin", "pravastatin"},
	"ACE inhibitor":         {"lisinopril", "enalapril", "ramipril"},
	"proton pump inhibitor": {"omeprazole", "esomeprazole", "pantoprazole"},
	"benzodiazepine":        {"alprazolam", "diazepam", "lorazepam", "clonazepam"},
	"opioid":                {"oxycodone", "morphine", "tramadol", "hydrocodone"},
}

// classOf is the inverse of therapeuticClasses.
var classOf = map[string]string{}

// known is every generic name any table refers to.
var known = map[string]bool{}

func init() {
	for class, drugs := range therapeuticClasses {
		for _, d := range drugs {
			classOf[d] = class
			known[d] = true
		}
	}
	for p := range interactions {
		known[p.a] = true
		known[p.b] = true
	}
	for d := range pregnancyRisks {
		known[d] = true
	}
	for _, g := range aliases {
		known[g] = true
	}
}
