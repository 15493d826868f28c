package qdiabetes

// Published QDiabetes-2018 coefficients for men, one table per model.
// Men have no polycystic ovaries or gestational diabetes terms.

var maleA = coefficients{
	survivor: 0.978732228279114,
	ethnicity: [10]float64{
		0, 0,
		1.1000230829124793, 1.2903840126147210,
		1.6740908848727458, 1.1400446789147816,
		0.4682468169065580, 0.6990564996301544,
		0.6894365712711156, 0.4172222846773820,
	},
	smoking: [5]float64{0, 0.1638740910548557, 0.3185144911395897, 0.3220726656778343, 0.4505243716340953},

	age1: 4.4642324388691348,
	age2: -0.0040750108019255,
	bmi1: 0.9512902786712067,
	bmi2: -0.1435248827788547,
	town: 0.0259181820676787,

	atypicalAntipsychotics: 0.4210109234600543,
	corticosteroids:        0.2218358093292538,
	cardiovascularDisease:  0.2026960575629002,
	learningDisabilities:   0.2331532140798696,
	mentalIllness:          0.2277044952051772,
	statins:                0.5849007543114134,
	treatedHypertension:    0.3337939218350107,
	familyHistoryDiabetes:  0.6479928489936953,

	age1AtypicalAntipsychotics: -0.9463772226853415,
	age1LearningDisabilities:   -0.9384237552649983,
	age1Statins:                -1.7479070653003299,
	age1BMI1:                   0.4514759924187976,
	age1BMI2:                   -0.1079548126277638,
	age1FamilyHistory:          -0.6011853042930119,
	age2AtypicalAntipsychotics: -0.0000519927442172,
	age2LearningDisabilities:   0.0007102643855968,
	age2Statins:                0.0013508364599531,
	age2BMI1:                   -0.0011797722394560,
	age2BMI2:                   0.0002147150913931,
	age2FamilyHistory:          0.0004914185594087,
}

var maleB = coefficients{
	survivor: 0.985019445419312,
	ethnicity: [10]float64{
		0, 0,
		1.0081475800686235, 1.3359138425778705,
		1.4815419524892652, 1.0384996851820663,
		0.5202348070887524, 0.8579673418258558,
		0.6413108960765615, 0.4838340220821504,
	},
	smoking: [5]float64{0, 0.1119475792364162, 0.3110132095412204, 0.3328898469326042, 0.4257069026941993},

	age1: 4.1149143302364717,
	age2: -0.0047593576668505,
	bmi1: 0.8169361587644297,
	bmi2: -0.1250237740343336,
	lab1: -54.8417881280971070,
	lab2: -53.1120784984813600,
	town: 0.0253741755198943,

	atypicalAntipsychotics: 0.4417934088889577,
	corticosteroids:        0.3413547348339454,
	cardiovascularDisease:  0.2158977454372756,
	learningDisabilities:   0.4012885027585300,
	mentalIllness:          0.2181769391399779,
	statins:                0.5147657600111734,
	treatedHypertension:    0.2467209287407037,
	familyHistoryDiabetes:  0.5749437333987512,

	age1AtypicalAntipsychotics: -0.9502224313823126,
	age1LearningDisabilities:   -0.8358370163090045,
	age1Statins:                -1.8141786919269460,
	age1BMI1:                   0.3748482092078384,
	age1BMI2:                   -0.0909836579562487,
	age1Lab1:                   21.0117301217643340,
	age1Lab2:                   23.8244600447469740,
	age1FamilyHistory:          -0.6780647705291665,
	age2AtypicalAntipsychotics: 0.0001472972077162,
	age2LearningDisabilities:   0.0006012919264966,
	age2Statins:                0.0016393484911405,
	age2BMI1:                   -0.0010774782221531,
	age2BMI2:                   0.0001911048730458,
	age2Lab1:                   -0.0390046079223835,
	age2Lab2:                   -0.0411277198058959,
	age2FamilyHistory:          0.0006257588248859,
}

var maleC = coefficients{
	survivor: 0.981181740760803,
	ethnicity: [10]float64{
		0, 0,
		0.6757120705498780, 0.8314732504966345,
		1.0969133802228563, 0.7682244636456048,
		0.2089752925910850, 0.3809159378197057,
		0.3423583679661269, 0.2204647785343308,
	},
	smoking: [5]float64{0, 0.1159289120687865, 0.1462418263763327, 0.1078142411249314, 0.1984862916366847},

	age1: 4.0193435623978031,
	age2: -0.0048396442306278,
	bmi1: 0.8182916890534932,
	bmi2: -0.1255880870135964,
	lab1: 8.0511642238857934,
	lab2: -0.1465234689391449,
	town: 0.0252299651849007,

	atypicalAntipsychotics: 0.4554152522017330,
	corticosteroids:        0.1381618768682392,
	cardiovascularDisease:  0.1454698889623951,
	learningDisabilities:   0.2596046658040857,
	mentalIllness:          0.2852378849058589,
	statins:                0.4255195190118552,
	treatedHypertension:    0.3316943000645931,
	familyHistoryDiabetes:  0.5661232594368061,

	age1AtypicalAntipsychotics: -1.0013331909079835,
	age1LearningDisabilities:   -0.8916465737221592,
	age1Statins:                -1.7074561167819817,
	age1BMI1:                   0.4507452747267244,
	age1BMI2:                   -0.1085185980916560,
	age1Lab1:                   27.6705938271465650,
	age1Lab2:                   -7.4006134846785434,
	age1FamilyHistory:          -0.6141009388709716,
	age2AtypicalAntipsychotics: 0.0002245597398574,
	age2LearningDisabilities:   0.0006604436076569,
	age2Statins:                0.0013873509357389,
	age2BMI1:                   -0.0012224736160287,
	age2BMI2:                   0.0002266731010346,
	age2Lab1:                   -0.0592014581247543,
	age2Lab2:                   0.0155920894851499,
	age2FamilyHistory:          0.0005060258289477,
}
