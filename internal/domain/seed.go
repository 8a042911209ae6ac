package domain

// SeedQuestions returns the built-in CT scan bank. It is used whenever the
// configured store is empty or holds an invalid bank.
func SeedQuestions() []Question {
	return []Question{
		{
			ID:   "q1",
			Text: "What does CT in CT scan stand for?",
			Options: []Option{
				{ID: "a", Text: "Computed Tomography"},
				{ID: "b", Text: "Computerized Technical"},
				{ID: "c", Text: "Cellular Transmission"},
				{ID: "d", Text: "Critical Test"},
			},
			CorrectOptionID: "a",
			Explanation:     "CT is short for Computed Tomography, which combines X-rays and computer processing into cross-sectional images.",
			Category:        "CT basics",
			Level:           1,
		},
		{
			ID:   "q2",
			Text: "Which kind of radiation does a CT scanner use?",
			Options: []Option{
				{ID: "a", Text: "Alpha rays"},
				{ID: "b", Text: "Beta rays"},
				{ID: "c", Text: "X-rays"},
				{ID: "d", Text: "Gamma rays"},
			},
			CorrectOptionID: "c",
			Explanation:     "CT uses X-rays, a form of electromagnetic radiation.",
			Category:        "Physics",
			Level:           1,
		},
		{
			ID:   "q3",
			Text: "What is the main purpose of contrast media in a CT examination?",
			Options: []Option{
				{ID: "a", Text: "Reduce the radiation dose"},
				{ID: "b", Text: "Improve visualisation of specific organs"},
				{ID: "c", Text: "Speed up the scan"},
				{ID: "d", Text: "Make the patient more comfortable"},
			},
			CorrectOptionID: "b",
			Explanation:     "Contrast media improve the visibility of vessels and organs.",
			Category:        "Clinical procedure",
			Level:           1,
		},
		{
			ID:   "q4",
			Text: "The Hounsfield Unit (HU) describes what?",
			Options: []Option{
				{ID: "a", Text: "X-ray tube rotation speed"},
				{ID: "b", Text: "Pixel size"},
				{ID: "c", Text: "A quantitative scale of radiodensity"},
				{ID: "d", Text: "Patient radiation dose"},
			},
			CorrectOptionID: "c",
			Explanation:     "HU is a numeric scale of tissue density derived from X-ray attenuation.",
			Category:        "Image interpretation",
			Level:           1,
		},
		{
			ID:   "q5",
			Text: "Which of these is NOT a potential risk of a CT scan?",
			Options: []Option{
				{ID: "a", Text: "Exposure to ionising radiation"},
				{ID: "b", Text: "Allergic reaction to contrast media"},
				{ID: "c", Text: "Bacterial infection from the procedure"},
				{ID: "d", Text: "Contrast-induced kidney injury"},
			},
			CorrectOptionID: "c",
			Explanation:     "CT is non-invasive and does not usually cause bacterial infection.",
			Category:        "Patient safety",
			Level:           2,
		},
		{
			ID:   "q6",
			Text: "What does windowing mean in CT imaging?",
			Options: []Option{
				{ID: "a", Text: "Calibrating the scanner"},
				{ID: "b", Text: "Adjusting grey-level display to highlight tissue"},
				{ID: "c", Text: "Positioning the patient"},
				{ID: "d", Text: "Opening the gantry"},
			},
			CorrectOptionID: "b",
			Explanation:     "Window width and level map a HU range onto the displayed grey scale.",
			Category:        "Image interpretation",
			Level:           2,
		},
		{
			ID:   "q7",
			Text: "What is the main advantage of helical (spiral) CT?",
			Options: []Option{
				{ID: "a", Text: "Lower equipment cost"},
				{ID: "b", Text: "Faster continuous volume acquisition"},
				{ID: "c", Text: "No radiation"},
				{ID: "d", Text: "No need for contrast"},
			},
			CorrectOptionID: "b",
			Explanation:     "Continuous table movement with rotation acquires a volume quickly.",
			Category:        "Special techniques",
			Level:           2,
		},
		{
			ID:   "q8",
			Text: "Which principle guides radiation protection in CT?",
			Options: []Option{
				{ID: "a", Text: "Maximum dose for best image"},
				{ID: "b", Text: "ALARA (as low as reasonably achievable)"},
				{ID: "c", Text: "Fixed dose for every patient"},
				{ID: "d", Text: "Dose does not matter"},
			},
			CorrectOptionID: "b",
			Explanation:     "ALARA keeps dose as low as reasonably achievable.",
			Category:        "Patient safety",
			Level:           2,
		},
		{
			ID:   "q9",
			Text: "Patient movement during acquisition typically causes which artifact?",
			Options: []Option{
				{ID: "a", Text: "Beam hardening"},
				{ID: "b", Text: "Motion artifact"},
				{ID: "c", Text: "Ring artifact"},
				{ID: "d", Text: "Partial volume"},
			},
			CorrectOptionID: "b",
			Explanation:     "Movement produces blurring and streaks known as motion artifacts.",
			Category:        "Artifacts and image quality",
			Level:           3,
		},
		{
			ID:   "q10",
			Text: "What should be checked before giving iodinated contrast?",
			Options: []Option{
				{ID: "a", Text: "Renal function and allergy history"},
				{ID: "b", Text: "Blood type"},
				{ID: "c", Text: "Eye colour"},
				{ID: "d", Text: "Shoe size"},
			},
			CorrectOptionID: "a",
			Explanation:     "Kidney function and prior reactions determine contrast safety.",
			Category:        "Clinical procedure",
			Level:           3,
		},
		{
			ID:   "q11",
			Text: "Which component converts X-rays passing through the patient into signals?",
			Options: []Option{
				{ID: "a", Text: "Collimator"},
				{ID: "b", Text: "Detector array"},
				{ID: "c", Text: "Patient table"},
				{ID: "d", Text: "Cooling system"},
			},
			CorrectOptionID: "b",
			Explanation:     "Detectors measure attenuated X-rays and convert them into electrical signals.",
			Category:        "Equipment",
			Level:           3,
		},
		{
			ID:   "q12",
			Text: "Compared with MRI, CT is generally better for?",
			Options: []Option{
				{ID: "a", Text: "Soft tissue contrast of the brain"},
				{ID: "b", Text: "Imaging without radiation"},
				{ID: "c", Text: "Fast evaluation of acute trauma and bone"},
				{ID: "d", Text: "Patients with pacemakers only"},
			},
			CorrectOptionID: "c",
			Explanation:     "CT is fast and shows bone and acute bleeding well.",
			Category:        "Modality comparison",
			Level:           3,
		},
	}
}
