package qdiabetes

// Published QDiabetes-2018 coefficients for women, one table per model.
// Transcribed verbatim; do not edit without re-running the reference vectors in engine_test.go.

var femaleA = coefficients{
	survivor: 0.986227273941040,
	ethnicity: [10]float64{
		0, 0,
		1.0695857881565456, 1.3430172097414006,
		1.8029022579794518, 1.1274654517708020,
		0.4214631490239910, 0.2850919645908353,
		0.8815108797589199, 0.3660573343168487,
	},
	smoking: [5]float64{0, 0.0656016901750590, 0.2845098867369837, 0.3567664381700702, 0.5359517110678775},

	age1: 4.3400852699139278,
	age2: -0.0048771702696158879,
	bmi1: 2.9320361259524925,
	bmi2: -0.0474002058748434900,
	town: 0.0373405696180491510,

	atypicalAntipsychotics: 0.5526764611098438,
	corticosteroids:        0.2679223368067459,
	cardiovascularDisease:  0.1779722905458669,
	gestationalDiabetes:    1.5248871531467574,
	learningDisabilities:   0.2783514358717271,
	mentalIllness:          0.2618085210917905,
	polycysticOvaries:      0.3406173988206666,
	statins:                0.6590728773280821,
	treatedHypertension:    0.4394758285813711,
	familyHistoryDiabetes:  0.5313359456558733,

	age1AtypicalAntipsychotics: -0.8031518398316395,
	age1LearningDisabilities:   -0.8641596002882057,
	age1Statins:                -1.9757776696583935,
	age1BMI1:                   0.6553138757562945,
	age1BMI2:                   -0.0362096572016301,
	age1FamilyHistory:          -0.2641171450558896,
	age2AtypicalAntipsychotics: 0.0004684041181021,
	age2LearningDisabilities:   0.0006724968808953,
	age2Statins:                0.0023750534194347,
	age2BMI1:                   -0.0044719662445263,
	age2BMI2:                   0.0001185479967753,
	age2FamilyHistory:          0.0004161025828904,
}

var femaleB = coefficients{
	survivor: 0.990905702114105,
	ethnicity: [10]float64{
		0, 0,
		0.9898906127239111, 1.2511504196326508,
		1.4934757568196120, 0.9673887434565966,
		0.4844644519593178, 0.4784214955360102,
		0.7520946270805577, 0.4050880741541424,
	},
	smoking: [5]float64{0, 0.0374156307236963, 0.2252973672514482, 0.3099736428023662, 0.4361942139496417},

	age1: 3.7650129507517280,
	age2: -0.0056043343436614941,
	bmi1: 2.4410935031672469,
	bmi2: -0.0421526334799096,
	lab1: -2.1887891946337308,
	lab2: -69.9608419828660290,
	town: 0.0358046297663126,

	atypicalAntipsychotics: 0.4748378550253853,
	corticosteroids:        0.3767933443754728,
	cardiovascularDisease:  0.1967261568066525,
	gestationalDiabetes:    1.0689325033692647,
	learningDisabilities:   0.4542293408951034,
	mentalIllness:          0.1616171889084260,
	polycysticOvaries:      0.3565365789576717,
	statins:                0.5809287382718667,
	treatedHypertension:    0.2836632020122907,
	familyHistoryDiabetes:  0.4522149766206111,

	age1AtypicalAntipsychotics: -0.7683591642786522,
	age1LearningDisabilities:   -0.7983128124297588,
	age1Statins:                -1.9033508839833257,
	age1BMI1:                   0.4844747602404915,
	age1BMI2:                   -0.0319399883071813,
	age1Lab1:                   2.2442903047404350,
	age1Lab2:                   13.0068388699783030,
	age1FamilyHistory:          -0.3040627374034501,
	age2AtypicalAntipsychotics: 0.0005194455624413,
	age2LearningDisabilities:   0.0003028327567161,
	age2Statins:                0.0024397111406018,
	age2BMI1:                   -0.0041572976682154,
	age2BMI2:                   0.0001126882194204,
	age2Lab1:                   0.0199345308534312,
	age2Lab2:                   -0.0716677187529306,
	age2FamilyHistory:          0.0004523639671202,
}

var femaleC = coefficients{
	survivor: 0.988788545131683,
	ethnicity: [10]float64{
		0, 0,
		0.5990951599291540, 0.7832030965635389,
		1.1947351247960103, 0.7141744699168143,
		0.1195328468388768, 0.0136688728784904,
		0.5709226537693945, 0.1709107628106929,
	},
	smoking: [5]float64{0, 0.0658482585100006, 0.1458413689734224, 0.1525864247480118, 0.3078741679661397},

	age1: 3.5655214891947722,
	age2: -0.0056158243572733,
	bmi1: 2.5043028874544841,
	bmi2: -0.0428758018926904,
	lab1: 8.7368031307362184,
	lab2: -0.0782313866699499,
	town: 0.0358668220563482,

	atypicalAntipsychotics: 0.5497633311042200,
	corticosteroids:        0.1687220550638970,
	cardiovascularDisease:  0.1644330036273934,
	gestationalDiabetes:    1.1250098105171140,
	learningDisabilities:   0.2891205831073965,
	mentalIllness:          0.3182512249068407,
	polycysticOvaries:      0.3380644414098174,
	statins:                0.4559396847381116,
	treatedHypertension:    0.4040022295023758,
	familyHistoryDiabetes:  0.4428015404826031,

	age1AtypicalAntipsychotics: -0.8125434197162131,
	age1LearningDisabilities:   -0.9084665765269808,
	age1Statins:                -1.8557960585560658,
	age1BMI1:                   0.6023218765235252,
	age1BMI2:                   -0.0344950383968044,
	age1Lab1:                   25.4412033227367150,
	age1Lab2:                   -6.8076080421556107,
	age1FamilyHistory:          -0.2727571351506187,
	age2AtypicalAntipsychotics: 0.0004665611306005,
	age2LearningDisabilities:   0.0008518980139928,
	age2Statins:                0.0022627250963352,
	age2BMI1:                   -0.0043386645663133,
	age2BMI2:                   0.0001162778561671,
	age2Lab1:                   -0.0522541355885925,
	age2Lab2:                   0.0140548259061144,
	age2FamilyHistory:          0.0004354519795220,
}
